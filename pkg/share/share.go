package share

import (
	"github.com/skip2/go-qrcode"
	"github.com/tauraamui/xerror"
)

const DefaultSize = 512

var ErrNoURL = xerror.New("no share url to encode")

// QRCode renders url as a square PNG of size pixels.
func QRCode(url string, size int) ([]byte, error) {
	if len(url) == 0 {
		return nil, ErrNoURL
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, xerror.Errorf("unable to encode share code: %w", err)
	}
	return png, nil
}

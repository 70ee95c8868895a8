package share_test

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/share"
)

func TestQRCodeRendersPNGOfRequestedSize(t *testing.T) {
	is := is.New(t)
	data, err := share.QRCode("https://share.example.com/v/42", 256)
	is.NoErr(err)

	img, err := png.Decode(bytes.NewReader(data))
	is.NoErr(err)
	is.Equal(img.Bounds().Dx(), 256)
	is.Equal(img.Bounds().Dy(), 256)
}

func TestQRCodeWithoutURLFails(t *testing.T) {
	is := is.New(t)
	_, err := share.QRCode("", 256)
	is.Equal(err, share.ErrNoURL)
}

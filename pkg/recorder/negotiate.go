package recorder

import (
	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
)

// Negotiate walks the preferences in order and returns the first one an
// encoder supports. When none is supported it falls back to MJPEG, so
// negotiation itself never fails.
func Negotiate(preferences []configdef.Format, encoders []videoclip.Encoder) (configdef.Format, videoclip.Encoder) {
	for _, format := range preferences {
		for _, encoder := range encoders {
			if encoder != nil && encoder.Supports(format) {
				return format, encoder
			}
		}
	}
	return MJPEGFormat, mjpegEncoder{}
}

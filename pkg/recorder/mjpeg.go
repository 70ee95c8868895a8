package recorder

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/xerror"
)

// MJPEGFormat is always available, whatever codecs the host has.
var MJPEGFormat = configdef.Format{
	Container: "mjpeg",
	Codec:     "mjpeg",
	MediaType: "video/x-motion-jpeg",
	Extension: ".mjpeg",
}

const mjpegQuality = 85

// NeedsTranscode reports whether the blob is in a container phones
// cannot play back, so the receiving end has to convert it first.
func (b Blob) NeedsTranscode() bool {
	return b.Format.Container == MJPEGFormat.Container
}

type mjpegEncoder struct{}

func (mjpegEncoder) Name() string { return "mjpeg" }

func (mjpegEncoder) Supports(format configdef.Format) bool {
	return format.Container == MJPEGFormat.Container && format.Codec == MJPEGFormat.Codec
}

func (mjpegEncoder) Open(
	format configdef.Format, fps int, size image.Point, onData videoclip.DataFunc,
) (videoclip.Stream, error) {
	return &mjpegStream{onData: onData}, nil
}

// mjpegStream hands over one JPEG per frame as soon as it is encoded.
type mjpegStream struct {
	onData  videoclip.DataFunc
	stopped bool
	buf     bytes.Buffer
}

func (s *mjpegStream) Write(img image.Image) error {
	if s.stopped {
		return xerror.New("cannot write to stopped stream")
	}
	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, img, &jpeg.Options{Quality: mjpegQuality}); err != nil {
		return xerror.Errorf("unable to encode frame: %w", err)
	}
	chunk := make([]byte, s.buf.Len())
	copy(chunk, s.buf.Bytes())
	s.onData(chunk)
	return nil
}

func (s *mjpegStream) Stop() error {
	s.stopped = true
	return nil
}

func (s *mjpegStream) Abort() {
	s.stopped = true
}

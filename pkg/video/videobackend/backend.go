package videobackend

import (
	"context"
	"image"

	"github.com/spf13/afero"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/archbooth/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var fs = afero.NewOsFs()

const DeviceErrorKind = xerror.Kind("device")

var ErrDeviceUnavailable = xerror.NewWithKind(DeviceErrorKind, "video device unavailable")

type Connection interface {
	UUID() string
	Read(videoframe.Frame) error
	IsOpen() bool
	Close() error
}

// Constraints are hints, a device is free to deliver
// a different resolution or frame rate.
type Constraints struct {
	Device        string
	Width, Height int
	FPS           int
}

type Display interface {
	Show(image.Image) error
	Close() error
}

type Backend interface {
	OpenCamera(context.Context, Constraints) (Connection, error)
	// OpenBackground opens a video file which loops forever, paced
	// at the file's own frame rate.
	OpenBackground(context.Context, string) (Connection, error)
	NewFrame() videoframe.Frame
	Encoders() []videoclip.Encoder
	NewDisplay(title string) (Display, error)
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockVideoBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}

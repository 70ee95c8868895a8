package videobackend

import (
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

const chunkSize = 64 * 1024

type videoWriter interface {
	IsOpened() bool
	Write(gocv.Mat) error
	Close() error
}

var openVideoWriter = func(filename, fourcc string, fps float64, width, height int, isColor bool) (videoWriter, error) {
	return gocv.VideoWriterFile(filename, fourcc, fps, width, height, isColor)
}

var tempDir = os.TempDir

type openCVWriterEncoder struct {
	mu     sync.Mutex
	checked map[string]bool
}

func newOpenCVWriterEncoder() *openCVWriterEncoder {
	return &openCVWriterEncoder{checked: map[string]bool{}}
}

func (e *openCVWriterEncoder) Name() string { return "opencv" }

// Supports opens a throwaway writer for the format once and
// remembers whether the installed codecs accepted it.
func (e *openCVWriterEncoder) Supports(format configdef.Format) bool {
	if len(format.FourCC) != 4 || len(format.Extension) == 0 {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	key := format.FourCC + format.Extension
	if ok, found := e.checked[key]; found {
		return ok
	}

	ok := canOpenWriter(format)
	e.checked[key] = ok
	return ok
}

func canOpenWriter(format configdef.Format) bool {
	path, err := tempFilePath(format.Extension)
	if err != nil {
		return false
	}
	defer fs.Remove(path) //nolint

	vw, err := openVideoWriter(path, format.FourCC, 30, 16, 16, true)
	if err != nil {
		return false
	}
	defer vw.Close()
	return vw.IsOpened()
}

func tempFilePath(ext string) (string, error) {
	f, err := afero.TempFile(fs, tempDir(), "archbooth-*"+ext)
	if err != nil {
		return "", xerror.Errorf("unable to create temporary recording file: %w", err)
	}
	defer f.Close()
	return filepath.Clean(f.Name()), nil
}

func (e *openCVWriterEncoder) Open(
	format configdef.Format, fps int, size image.Point, onData videoclip.DataFunc,
) (videoclip.Stream, error) {
	path, err := tempFilePath(format.Extension)
	if err != nil {
		return nil, err
	}

	vw, err := openVideoWriter(path, format.FourCC, float64(fps), size.X, size.Y, true)
	if err != nil || !vw.IsOpened() {
		fs.Remove(path) //nolint
		return nil, xerror.Errorf("unable to open %s writer for %s", format.FourCC, format.Container)
	}

	return &openCVWriterStream{path: path, vw: vw, onData: onData}, nil
}

type openCVWriterStream struct {
	path   string
	vw     videoWriter
	onData videoclip.DataFunc
	closed bool
}

func (s *openCVWriterStream) Write(img image.Image) error {
	if s.closed {
		return xerror.New("cannot write to stopped stream")
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return xerror.Errorf("unable to convert Go image into OpenCV mat: %w", err)
	}
	defer mat.Close()
	return s.vw.Write(mat)
}

// Stop finalises the container and hands the file over in fixed sized chunks.
func (s *openCVWriterStream) Stop() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer fs.Remove(s.path) //nolint

	if err := s.vw.Close(); err != nil {
		return xerror.Errorf("unable to finalise recording: %w", err)
	}

	data, err := afero.ReadFile(fs, s.path)
	if err != nil {
		return xerror.Errorf("unable to read finalised recording: %w", err)
	}

	for start := 0; start < len(data); start += chunkSize {
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		s.onData(data[start:end])
	}
	return nil
}

func (s *openCVWriterStream) Abort() {
	if s.closed {
		return
	}
	s.closed = true
	if err := s.vw.Close(); err != nil {
		log.Warn("Unable to close aborted writer: %v", err)
	}
	fs.Remove(s.path) //nolint
}

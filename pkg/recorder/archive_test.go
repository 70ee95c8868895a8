package recorder

import (
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/spf13/afero"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
)

func overloadFS(override afero.Fs) func() {
	ref := fs
	fs = override
	return func() { fs = ref }
}

func overloadTimestamp(t time.Time) func() {
	ref := videoclip.Timestamp
	videoclip.Timestamp = func() time.Time { return t }
	return func() { videoclip.Timestamp = ref }
}

func TestArchiveStoresBlobUnderDateDirectory(t *testing.T) {
	is := is.New(t)
	mem := afero.NewMemMapFs()
	defer overloadFS(mem)()
	defer overloadTimestamp(time.Date(2021, 11, 3, 14, 5, 6, 0, time.UTC))()

	path, err := Archive{Root: "/clips"}.Store(Blob{Data: []byte("frames"), Format: MJPEGFormat})
	is.NoErr(err)
	is.Equal(filepath.Dir(path), filepath.Join("/clips", "2021-11-03"))
	is.Equal(filepath.Ext(path), ".mjpeg")

	data, err := afero.ReadFile(mem, path)
	is.NoErr(err)
	is.Equal(string(data), "frames")
}

func TestFinalizeArchivesWhenConfigured(t *testing.T) {
	is := is.New(t)
	mem := afero.NewMemMapFs()
	defer overloadFS(mem)()

	rec := New(Settings{Archive: &Archive{Root: "/clips"}})
	is.NoErr(rec.Start(time.Now(), image.Pt(4, 4)))
	is.NoErr(rec.Stop())

	matches, err := afero.Glob(mem, "/clips/*/*.mjpeg")
	is.NoErr(err)
	is.Equal(len(matches), 1)
}

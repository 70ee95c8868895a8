package recorder

import (
	"os"

	"github.com/spf13/afero"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/xerror"
)

var fs = afero.NewOsFs()

// Archive keeps a local copy of every finished recording under a
// date named directory.
type Archive struct {
	Root string
}

func (a Archive) Store(blob Blob) (string, error) {
	clip := videoclip.New(a.Root, blob.Format.Extension)
	if err := fs.MkdirAll(clip.RootPath(), os.ModeDir|os.ModePerm); err != nil {
		return "", xerror.Errorf("unable to create archive directory: %w", err)
	}
	if err := afero.WriteFile(fs, clip.FileName(), blob.Data, 0644); err != nil {
		return "", xerror.Errorf("unable to archive recording: %w", err)
	}
	return clip.FileName(), nil
}

package config

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"
	"github.com/tauraamui/archbooth/pkg/configdef"
)

func withMemFs(t *testing.T) afero.Fs {
	fsRef, overrideRef := fs, OverridePath
	t.Cleanup(func() { fs, OverridePath = fsRef, overrideRef })

	mem := afero.NewMemMapFs()
	fs = mem
	OverridePath = filepath.Join("testroot", "archbooth", configFileName)
	return mem
}

func TestCreateWritesDefaultsToDisk(t *testing.T) {
	is := is.New(t)
	mem := withMemFs(t)

	is.NoErr(DefaultCreator().Create(Defaults()))

	data, err := afero.ReadFile(mem, OverridePath)
	is.NoErr(err)

	values := configdef.Values{}
	is.NoErr(json.Unmarshal(data, &values))
	is.Equal(values.Canvas.Width, 1440)
	is.Equal(len(values.Recording.Formats), 3)
	is.NoErr(values.RunValidate())
}

func TestCreateRefusesToOverwrite(t *testing.T) {
	is := is.New(t)
	withMemFs(t)

	is.NoErr(DefaultCreator().Create(Defaults()))
	is.Equal(DefaultCreator().Create(Defaults()), configdef.ErrConfigAlreadyExists)
}

func TestDestroyRemovesConfigAndIgnoresMissing(t *testing.T) {
	is := is.New(t)
	mem := withMemFs(t)

	is.NoErr(DefaultCreator().Create(Defaults()))
	is.NoErr(DefaultDestroyer().Destroy())

	exists, err := afero.Exists(mem, OverridePath)
	is.NoErr(err)
	is.True(!exists)

	is.NoErr(DefaultDestroyer().Destroy())
}

package config

import (
	"errors"
	"os"

	"github.com/tauraamui/xerror"
)

func destroy() error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return xerror.Errorf("unable to delete config file: %w", err)
	}
	return nil
}

package config

import (
	"github.com/tauraamui/archbooth/internal/config"
	"github.com/tauraamui/archbooth/pkg/configdef"
)

type Destroyer interface {
	configdef.Destroyer
}

func DefaultDestroyer() Destroyer {
	return config.DefaultDestroyer()
}

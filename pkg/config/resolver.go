package config

import (
	"github.com/tauraamui/archbooth/internal/config"
	"github.com/tauraamui/archbooth/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

func DefaultResolver() Resolver {
	return config.DefaultResolver()
}

// OverridePath points the default resolver, creator and destroyer
// at an explicit config file instead of the resolved location.
func OverridePath(path string) {
	config.OverridePath = path
}

package config

import (
	"github.com/tauraamui/archbooth/internal/config"
	"github.com/tauraamui/archbooth/pkg/configdef"
)

type Creator interface {
	configdef.Creator
}

func DefaultCreator() Creator {
	return config.DefaultCreator()
}

// Defaults returns the values a freshly created config file is seeded with.
func Defaults() configdef.Values {
	return config.Defaults()
}

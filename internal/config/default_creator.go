package config

import "github.com/tauraamui/archbooth/pkg/configdef"

func DefaultCreator() configdef.Creator {
	return defaultCreator{}
}

type defaultCreator struct{}

func (d defaultCreator) Create(values configdef.Values) error {
	return create(values)
}

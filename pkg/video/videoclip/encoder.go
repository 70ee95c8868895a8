package videoclip

import (
	"image"

	"github.com/tauraamui/archbooth/pkg/configdef"
)

// DataFunc receives encoded bytes as the encoder makes them available.
// Chunks are handed over by ownership and never mutated afterwards.
type DataFunc func([]byte)

type Stream interface {
	Write(image.Image) error
	Stop() error
	Abort()
}

type Encoder interface {
	Name() string
	Supports(configdef.Format) bool
	Open(format configdef.Format, fps int, size image.Point, onData DataFunc) (Stream, error)
}

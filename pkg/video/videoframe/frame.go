package videoframe

import "image"

type Dimensions struct {
	W, H int
}

// Empty reports whether either side is zero, which is how an
// unopened or not yet streaming device reports its first reads.
func (d Dimensions) Empty() bool {
	return d.W <= 0 || d.H <= 0
}

type Frame interface {
	DataRef() interface{}
	Dimensions() Dimensions
	Image() (image.Image, error)
	Close()
}

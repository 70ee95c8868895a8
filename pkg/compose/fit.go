package compose

import (
	"image"
	"math"
)

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Outer snaps the rectangle outwards to whole pixels.
func (r Rect) Outer() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)),
	)
}

// Cover returns the centred crop of a srcW x srcH source which has the
// target's aspect ratio, so scaling it into the target fills it with
// no distortion and no empty bands.
func Cover(srcW, srcH, dstW, dstH float64) Rect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Rect{}
	}
	targetAR := dstW / dstH
	if srcW/srcH > targetAR {
		w := srcH * targetAR
		return Rect{X: (srcW - w) / 2, W: w, H: srcH}
	}
	h := srcW / targetAR
	return Rect{Y: (srcH - h) / 2, W: srcW, H: h}
}

// Contain returns where a source lands when scaled uniformly to fit
// entirely inside the target, centred, leaving letterbox bands.
func Contain(srcW, srcH, dstW, dstH float64) Rect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Rect{}
	}
	scale := math.Min(dstW/srcW, dstH/srcH)
	w, h := srcW*scale, srcH*scale
	return Rect{X: (dstW - w) / 2, Y: (dstH - h) / 2, W: w, H: h}
}

package compose_test

import (
	"math"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/archbooth/pkg/compose"
)

const epsilon = 1e-9

var fitSizes = []float64{1, 3, 16, 275, 810, 1080, 1440, 1920, 2160, 3840}

func TestCoverCropFillsTargetWithoutDistortion(t *testing.T) {
	is := is.NewRelaxed(t)
	for _, sw := range fitSizes {
		for _, sh := range fitSizes {
			for _, tw := range fitSizes {
				for _, th := range fitSizes {
					crop := compose.Cover(sw, sh, tw, th)

					// same aspect as the target
					is.True(math.Abs(crop.W/crop.H-tw/th) < 1e-9*math.Max(1, tw/th))
					// inside the source
					is.True(crop.X >= -epsilon && crop.Y >= -epsilon)
					is.True(crop.X+crop.W <= sw+epsilon && crop.Y+crop.H <= sh+epsilon)
					// only one axis is cropped, and centred on it
					is.True(math.Abs(crop.W-sw) < epsilon || math.Abs(crop.H-sh) < epsilon)
					is.True(math.Abs(2*crop.X+crop.W-sw) < epsilon)
					is.True(math.Abs(2*crop.Y+crop.H-sh) < epsilon)
				}
			}
		}
	}
}

func TestCoverCropOfLandscapeIntoPortraitTrimsSides(t *testing.T) {
	is := is.New(t)
	crop := compose.Cover(1920, 1080, 275, 810)
	is.Equal(crop.Y, 0.0)
	is.Equal(crop.H, 1080.0)
	is.True(math.Abs(crop.W-1080*275.0/810) < epsilon)
	is.True(math.Abs(crop.X-(1920-crop.W)/2) < epsilon)
}

func TestContainPlacementIsCentredUniformAndInside(t *testing.T) {
	is := is.NewRelaxed(t)
	for _, sw := range fitSizes {
		for _, sh := range fitSizes {
			for _, tw := range fitSizes {
				for _, th := range fitSizes {
					fit := compose.Contain(sw, sh, tw, th)

					is.True(fit.X >= -epsilon && fit.Y >= -epsilon)
					is.True(fit.X+fit.W <= tw+1e-9*tw && fit.Y+fit.H <= th+1e-9*th)
					is.True(math.Abs(fit.W/sw-fit.H/sh) < 1e-9*math.Max(fit.W/sw, 1))
					is.True(math.Abs(2*fit.X+fit.W-tw) < 1e-9*tw)
					is.True(math.Abs(2*fit.Y+fit.H-th) < 1e-9*th)
					// touches the target on at least one axis
					is.True(math.Abs(fit.W-tw) < 1e-9*tw || math.Abs(fit.H-th) < 1e-9*th)
				}
			}
		}
	}
}

func TestContainLetterboxesWideBackgroundInPortraitCanvas(t *testing.T) {
	is := is.New(t)
	fit := compose.Contain(1920, 1080, 1440, 1920)
	is.Equal(fit.X, 0.0)
	is.Equal(fit.W, 1440.0)
	is.Equal(fit.H, 810.0)
	is.Equal(fit.Y, 555.0)
}

func TestFitsOfEmptySizesAreEmpty(t *testing.T) {
	is := is.New(t)
	is.True(compose.Cover(0, 100, 10, 10).Empty())
	is.True(compose.Contain(100, 100, 0, 10).Empty())
}

package booth

import (
	"image"
	"math"

	"github.com/tauraamui/archbooth/pkg/aperture"
	"github.com/tauraamui/archbooth/pkg/aperture/segment"
	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/monitoring"
)

// newDNNEngine is swapped out where OpenCV models are unavailable.
var newDNNEngine = func(seg configdef.Segmentation) (aperture.Engine, error) {
	engine, err := segment.NewDNNEngine(seg.Model, seg.Config, seg.InputSize, seg.Threshold)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

func apertureSettings(cfg configdef.Values) (aperture.Settings, error) {
	outlineColor, err := configdef.ParseColor(cfg.Aperture.Outline.Color)
	if err != nil {
		return aperture.Settings{}, err
	}
	return aperture.Settings{
		Canvas:    image.Rect(0, 0, cfg.Canvas.Width, cfg.Canvas.Height),
		FeatherPX: cfg.Aperture.FeatherPX,
		Outline: aperture.OutlineStyle{
			Width:    cfg.Aperture.Outline.Width,
			Color:    outlineColor,
			Softness: cfg.Aperture.Outline.Softness,
		},
	}, nil
}

func newStrategy(cfg configdef.Values, metrics *monitoring.Metrics) (aperture.Strategy, error) {
	settings, err := apertureSettings(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Aperture.Strategy != configdef.StrategyPersonSegmentation {
		w := cfg.Aperture.Window
		return aperture.NewFixedWindow(aperture.Geometry{
			X: w.X, Y: w.Y, W: w.W, H: w.H, ArchRadius: w.ArchRadius,
		}, settings), nil
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	return aperture.NewPersonSegmentation(engine, settings, metrics.DroppedMask), nil
}

// newEngine loads the configured segmentation model, falling back to
// brightness keying on the mock backend or when no model is set.
func newEngine(cfg configdef.Values) (aperture.Engine, error) {
	seg := cfg.Aperture.Segmentation
	if cfg.MockBackend || len(seg.Model) == 0 {
		log.Info("Segmenting by brightness, no model configured")
		return segment.NewLumaEngine(lumaThreshold(seg.Threshold)), nil
	}
	return newDNNEngine(seg)
}

// lumaThreshold maps a confidence in [0, 1] onto an 8 bit brightness.
func lumaThreshold(confidence float64) uint8 {
	return uint8(math.Round(math.Min(1, math.Max(0, confidence)) * 255))
}

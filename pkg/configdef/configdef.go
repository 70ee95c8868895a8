package configdef

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"strings"

	"gopkg.in/dealancer/validate.v2"
)

const (
	StrategyFixedWindow        = "fixed_window"
	StrategyPersonSegmentation = "person_segmentation"

	UploadBackendHTTP = "http"
	UploadBackendGCS  = "gcs"
)

type Canvas struct {
	Width          int    `json:"width" validate:"gte=2"`
	Height         int    `json:"height" validate:"gte=2"`
	TargetFPS      int    `json:"target_fps" validate:"gte=1 & lte=60"`
	WakeHz         int    `json:"wake_hz" validate:"gte=1 & lte=240"`
	LetterboxColor string `json:"letterbox_color"`
}

type Camera struct {
	Device string `json:"device"`
	Width  int    `json:"width" validate:"gte=0"`
	Height int    `json:"height" validate:"gte=0"`
	FPS    int    `json:"fps" validate:"gte=0 & lte=120"`
	Rotate int    `json:"rotate"`
	Mirror bool   `json:"mirror"`
}

type Background struct {
	Path string `json:"path"`
}

type Window struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	ArchRadius float64 `json:"arch_radius"`
}

type Outline struct {
	Width    float64 `json:"width"`
	Color    string  `json:"color"`
	Softness float64 `json:"softness"`
}

type Segmentation struct {
	Model     string  `json:"model"`
	Config    string  `json:"config"`
	InputSize int     `json:"input_size" validate:"gte=0"`
	Threshold float64 `json:"threshold"`
}

type Aperture struct {
	Strategy     string       `json:"strategy" validate:"one_of=fixed_window,person_segmentation"`
	Window       Window       `json:"window"`
	FeatherPX    float64      `json:"feather_px"`
	Outline      Outline      `json:"outline"`
	Segmentation Segmentation `json:"segmentation"`
}

type Format struct {
	Container string `json:"container" validate:"empty=false"`
	Codec     string `json:"codec" validate:"empty=false"`
	FourCC    string `json:"fourcc"`
	MediaType string `json:"media_type" validate:"empty=false"`
	Extension string `json:"extension" validate:"empty=false"`
}

type Recording struct {
	DurationMS int      `json:"duration_ms" validate:"gte=1000 & lte=60000"`
	Formats    []Format `json:"formats"`
	ArchiveDir string   `json:"archive_dir"`
}

type Upload struct {
	Backend         string `json:"backend" validate:"one_of=http,gcs"`
	URL             string `json:"url"`
	Token           string `json:"token"`
	Bucket          string `json:"bucket"`
	CredentialsFile string `json:"credentials_file"`
	TimeoutSeconds  int    `json:"timeout_seconds" validate:"gte=1"`
}

type Participants struct {
	URL string `json:"url"`
}

type Flow struct {
	WaitSeconds   int `json:"wait_seconds" validate:"gte=0"`
	ThanksSeconds int `json:"thanks_seconds" validate:"gte=0"`
}

type API struct {
	Address string `json:"address" validate:"empty=false"`
}

type Display struct {
	Enabled bool   `json:"enabled"`
	Title   string `json:"title"`
}

type Monitoring struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

type Share struct {
	QRSize int `json:"qr_size" validate:"gte=64 & lte=2048"`
}

type Values struct {
	Debug        bool         `json:"debug"`
	MockBackend  bool         `json:"mock_backend"`
	Canvas       Canvas       `json:"canvas"`
	Camera       Camera       `json:"camera"`
	Background   Background   `json:"background"`
	Aperture     Aperture     `json:"aperture"`
	Recording    Recording    `json:"recording"`
	Upload       Upload       `json:"upload"`
	Participants Participants `json:"participants"`
	Flow         Flow         `json:"flow"`
	API          API          `json:"api"`
	Display      Display      `json:"display"`
	Monitoring   Monitoring   `json:"monitoring"`
	Share        Share        `json:"share"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if err := validateWindow(v.Aperture.Window, v.Canvas); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if v.Camera.Rotate != 0 && v.Camera.Rotate != 90 {
		return fmt.Errorf(validationErrorHeader, errors.New("camera rotation must be 0 or 90 degrees"))
	}
	if v.Aperture.FeatherPX < 0 || v.Aperture.Outline.Width < 0 || v.Aperture.Outline.Softness < 0 {
		return fmt.Errorf(validationErrorHeader, errors.New("feather and outline sizes must not be negative"))
	}
	if _, err := ParseColor(v.Aperture.Outline.Color); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if _, err := ParseColor(v.Canvas.LetterboxColor); err != nil {
		return fmt.Errorf(validationErrorHeader, err)
	}
	if hasDupFormats(v.Recording.Formats) {
		return fmt.Errorf(validationErrorHeader, errors.New("recording formats must be unique"))
	}
	if v.Upload.Backend == UploadBackendGCS && len(v.Upload.Bucket) == 0 {
		return fmt.Errorf(validationErrorHeader, errors.New("gcs upload backend requires a bucket"))
	}
	return nil
}

func validateWindow(w Window, c Canvas) error {
	if w.W <= 0 || w.H <= 0 {
		return errors.New("aperture window must have a positive size")
	}
	if w.ArchRadius > w.W/2 {
		return errors.New("aperture arch radius must not exceed half the window width")
	}
	if w.X < 0 || w.Y < 0 || w.X+w.W > float64(c.Width) || w.Y+w.H > float64(c.Height) {
		return errors.New("aperture window must sit inside the canvas")
	}
	return nil
}

func hasDupFormats(formats []Format) (hasDup bool) {
	seen := map[string]struct{}{}
	for _, f := range formats {
		key := strings.ToLower(f.Container + "/" + f.Codec)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

// ParseColor reads #RGB, #RRGGBB or #RRGGBBAA into a non-premultiplied colour.
// An empty string is opaque black.
func ParseColor(s string) (color.NRGBA, error) {
	if len(s) == 0 {
		return color.NRGBA{A: 0xff}, nil
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

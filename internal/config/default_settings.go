package config

import "github.com/tauraamui/archbooth/pkg/configdef"

type defaultSettingKey uint

const (
	CANVAS     defaultSettingKey = 0x0
	CAMERA     defaultSettingKey = 0x1
	APERTURE   defaultSettingKey = 0x2
	RECORDING  defaultSettingKey = 0x3
	FORMATS    defaultSettingKey = 0x4
	UPLOAD     defaultSettingKey = 0x5
	FLOW       defaultSettingKey = 0x6
	API        defaultSettingKey = 0x7
	SHARE      defaultSettingKey = 0x8
	BACKGROUND defaultSettingKey = 0x9
	MONITORING defaultSettingKey = 0xA
)

var defaultSettings = map[defaultSettingKey]interface{}{
	CANVAS: configdef.Canvas{
		Width: 1440, Height: 1920, TargetFPS: 30, WakeHz: 60, LetterboxColor: "#000000",
	},
	CAMERA: configdef.Camera{
		Device: "0", Width: 3840, Height: 2160, FPS: 30, Rotate: 90, Mirror: false,
	},
	APERTURE: configdef.Aperture{
		Strategy: configdef.StrategyFixedWindow,
		Window: configdef.Window{
			X: 582, Y: 690, W: 275, H: 810, ArchRadius: 275.0 / 2,
		},
		FeatherPX: 2,
		Outline: configdef.Outline{
			Width: 8, Color: "#FFFFFFF2", Softness: 1,
		},
		Segmentation: configdef.Segmentation{
			InputSize: 256, Threshold: 0.5,
		},
	},
	RECORDING: configdef.Recording{
		DurationMS: 10_000,
	},
	FORMATS: []configdef.Format{
		{Container: "mp4", Codec: "avc1.64003E", FourCC: "avc1", MediaType: `video/mp4; codecs="avc1.64003E"`, Extension: ".mp4"},
		{Container: "mp4", Codec: "mp4v.20.9", FourCC: "mp4v", MediaType: `video/mp4; codecs="mp4v.20.9"`, Extension: ".mp4"},
		{Container: "avi", Codec: "mjpeg", FourCC: "MJPG", MediaType: "video/x-msvideo", Extension: ".avi"},
	},
	UPLOAD: configdef.Upload{
		Backend: configdef.UploadBackendHTTP, URL: "http://localhost:3000/upload", TimeoutSeconds: 30,
	},
	FLOW: configdef.Flow{
		WaitSeconds: 10, ThanksSeconds: 10,
	},
	API: configdef.API{
		Address: "127.0.0.1:8420",
	},
	SHARE: configdef.Share{
		QRSize: 256,
	},
	BACKGROUND: configdef.Background{
		Path: "assets/videos/background.mp4",
	},
	MONITORING: configdef.Monitoring{
		Address: "127.0.0.1:9420",
	},
}

// Defaults returns a fully populated set of values which a
// config file only needs to override partially.
func Defaults() configdef.Values {
	return configdef.Values{
		Canvas:       defaultSettings[CANVAS].(configdef.Canvas),
		Camera:       defaultSettings[CAMERA].(configdef.Camera),
		Background:   defaultSettings[BACKGROUND].(configdef.Background),
		Aperture:     defaultSettings[APERTURE].(configdef.Aperture),
		Recording:    defaultSettings[RECORDING].(configdef.Recording),
		Upload:       defaultSettings[UPLOAD].(configdef.Upload),
		Participants: configdef.Participants{URL: "http://localhost:3000/save-participant"},
		Flow:         defaultSettings[FLOW].(configdef.Flow),
		API:          defaultSettings[API].(configdef.API),
		Display:      configdef.Display{Enabled: true, Title: appName},
		Monitoring:   defaultSettings[MONITORING].(configdef.Monitoring),
		Share:        defaultSettings[SHARE].(configdef.Share),
	}
}

func defaultFormats() []configdef.Format {
	formats := defaultSettings[FORMATS].([]configdef.Format)
	return append([]configdef.Format{}, formats...)
}

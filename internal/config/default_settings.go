package config

import "github.com/tauraamui/windowcast/pkg/configdef"

type defaultSettingKey uint

const (
	FPS                defaultSettingKey = 0x0
	DURATIONSECONDS    defaultSettingKey = 0x1
	BITRATEKBPS        defaultSettingKey = 0x2
	THREADS            defaultSettingKey = 0x3
	OUTPUT             defaultSettingKey = 0x4
	ENCODER            defaultSettingKey = 0x5
	SOURCE             defaultSettingKey = 0x6
	JPEGQUALITY        defaultSettingKey = 0x7
	HARDWARESAMPLINGMS defaultSettingKey = 0x8
)

var defaultSettings = map[defaultSettingKey]interface{}{
	FPS:                60,
	DURATIONSECONDS:    5,
	BITRATEKBPS:        4000,
	THREADS:            4,
	OUTPUT:             "capture.ivf",
	ENCODER:            configdef.EncoderVP8,
	SOURCE:             configdef.SourceShm,
	JPEGQUALITY:        75,
	HARDWARESAMPLINGMS: 1000 / 120,
}

func defaultValues() configdef.Values {
	return configdef.Values{
		FPS:                defaultSettings[FPS].(int),
		DurationSeconds:    defaultSettings[DURATIONSECONDS].(int),
		BitrateKbps:        defaultSettings[BITRATEKBPS].(int),
		Threads:            defaultSettings[THREADS].(int),
		Output:             defaultSettings[OUTPUT].(string),
		Encoder:            defaultSettings[ENCODER].(string),
		Source:             defaultSettings[SOURCE].(string),
		JPEGQuality:        defaultSettings[JPEGQUALITY].(int),
		HardwareSamplingMs: defaultSettings[HARDWARESAMPLINGMS].(int),
	}
}

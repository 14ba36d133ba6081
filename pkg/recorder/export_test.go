package recorder

import (
	"github.com/tauraamui/windowcast/pkg/capture"
	"github.com/tauraamui/windowcast/pkg/database/dbconn"
	"github.com/tauraamui/windowcast/pkg/video/framesource"
	"github.com/tauraamui/windowcast/pkg/video/videoencoder"
	"github.com/tauraamui/windowcast/pkg/xwindow"
)

func OverloadOpenDisplay(overload func(string) (Display, error)) func() {
	ref := openDisplay
	openDisplay = overload
	return func() { openDisplay = ref }
}

func OverloadOpenShm(overload func(framesource.ShmTarget, xwindow.Handle) (framesource.Source, error)) func() {
	ref := openShm
	openShm = overload
	return func() { openShm = ref }
}

func OverloadOpenHardware(overload func(framesource.HardwareConfig) (framesource.Source, error)) func() {
	ref := openHardware
	openHardware = overload
	return func() { openHardware = ref }
}

func OverloadOpenEncoder(overload func(videoencoder.Settings, videoencoder.Backend) (capture.Encoder, error)) func() {
	ref := openEncoder
	openEncoder = overload
	return func() { openEncoder = ref }
}

func OverloadConnectCatalog(overload func() (dbconn.GormWrapper, error)) func() {
	ref := connectCatalog
	connectCatalog = overload
	return func() { connectCatalog = ref }
}

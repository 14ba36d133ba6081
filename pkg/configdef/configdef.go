package configdef

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tauraamui/xerror"
	"gopkg.in/dealancer/validate.v2"
)

const (
	EncoderVP8    = "vp8"
	EncoderMJPEG  = "mjpeg"
	EncoderOpenCV = "opencv"

	SourceShm         = "shm"
	SourceHardware    = "hardware"
	SourceTestPattern = "testpattern"
)

type Values struct {
	Debug              bool   `json:"debug" yaml:"debug"`
	FPS                int    `json:"fps" yaml:"fps" validate:"gte=1 & lte=240"`
	DurationSeconds    int    `json:"duration_seconds" yaml:"duration_seconds" validate:"gte=1 & lte=86400"`
	BitrateKbps        int    `json:"bitrate_kbps" yaml:"bitrate_kbps" validate:"gte=1 & lte=100000"`
	Threads            int    `json:"threads" yaml:"threads" validate:"gte=1 & lte=64"`
	Output             string `json:"output" yaml:"output" validate:"empty=false"`
	Encoder            string `json:"encoder" yaml:"encoder" validate:"one_of=vp8,mjpeg,opencv"`
	Source             string `json:"source" yaml:"source" validate:"one_of=shm,hardware,testpattern"`
	Display            string `json:"display" yaml:"display"`
	JPEGQuality        int    `json:"jpeg_quality" yaml:"jpeg_quality" validate:"gte=1 & lte=100"`
	HardwareSamplingMs int    `json:"hardware_sampling_ms" yaml:"hardware_sampling_ms" validate:"gte=1 & lte=1000"`
	Catalog            bool   `json:"catalog" yaml:"catalog"`
}

// TotalFrames is the number of capture iterations a session runs.
func (v Values) TotalFrames() int {
	return v.DurationSeconds * v.FPS
}

func (v Values) RunValidate() error {
	return validate.Validate(&v)
}

// Validate holds the rules the field tags cannot express, it is invoked
// by RunValidate once the tags pass.
func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if v.Encoder == EncoderVP8 && !hasExt(v.Output, ".ivf") {
		return fmt.Errorf(validationErrorHeader, xerror.Errorf("vp8 output must be an .ivf file, got %q", v.Output))
	}
	if v.Encoder == EncoderMJPEG && !hasExt(v.Output, ".avi") {
		return fmt.Errorf(validationErrorHeader, xerror.Errorf("mjpeg output must be an .avi file, got %q", v.Output))
	}
	return nil
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

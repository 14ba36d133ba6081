package videoframe_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
)

func TestChromaDimensionsRoundUp(t *testing.T) {
	is := is.New(t)

	tests := []struct {
		luma, chroma videoframe.Dimensions
	}{
		{videoframe.Dimensions{W: 640, H: 480}, videoframe.Dimensions{W: 320, H: 240}},
		{videoframe.Dimensions{W: 641, H: 481}, videoframe.Dimensions{W: 321, H: 241}},
		{videoframe.Dimensions{W: 1, H: 1}, videoframe.Dimensions{W: 1, H: 1}},
		{videoframe.Dimensions{W: 3, H: 2}, videoframe.Dimensions{W: 2, H: 1}},
	}

	for _, tt := range tests {
		is.Equal(tt.luma.ChromaDimensions(), tt.chroma)
		frame := videoframe.NewPlanarYUV(tt.luma)
		is.Equal(len(frame.Y), tt.luma.W*tt.luma.H)
		is.Equal(len(frame.U), tt.chroma.W*tt.chroma.H)
		is.Equal(len(frame.V), tt.chroma.W*tt.chroma.H)
		is.Equal(frame.UStride, tt.chroma.W)
	}
}

func TestFormatFromMasks(t *testing.T) {
	is := is.New(t)

	f, err := videoframe.FormatFromMasks(32, 0xFF0000, 0xFF00, 0xFF)
	is.NoErr(err)
	is.Equal(f, videoframe.FormatBGRX32)

	f, err = videoframe.FormatFromMasks(32, 0xFF, 0xFF00, 0xFF0000)
	is.NoErr(err)
	is.Equal(f, videoframe.FormatRGBX32)

	f, err = videoframe.FormatFromMasks(16, 0xF800, 0x7E0, 0x1F)
	is.NoErr(err)
	is.Equal(f, videoframe.FormatBGR565)

	f, err = videoframe.FormatFromMasks(16, 0x1F, 0x3E0, 0x7C00)
	is.NoErr(err)
	is.Equal(f, videoframe.FormatRGB555)

	_, err = videoframe.FormatFromMasks(24, 0xFF0000, 0xFF00, 0xFF)
	is.True(err != nil)
}

func TestRawFrameValidate(t *testing.T) {
	is := is.New(t)

	frame := videoframe.RawFrame{Width: 4, Height: 2, Stride: 16, Format: videoframe.FormatBGRX32, Data: make([]byte, 32)}
	is.NoErr(frame.Validate())

	padded := videoframe.RawFrame{Width: 3, Height: 2, Stride: 16, Format: videoframe.FormatBGRX32, Data: make([]byte, 32)}
	is.NoErr(padded.Validate())

	narrow := videoframe.RawFrame{Width: 4, Height: 2, Stride: 12, Format: videoframe.FormatBGRX32, Data: make([]byte, 32)}
	is.True(narrow.Validate() != nil)

	short := videoframe.RawFrame{Width: 4, Height: 2, Stride: 16, Format: videoframe.FormatBGRX32, Data: make([]byte, 31)}
	is.True(short.Validate() != nil)

	unknown := videoframe.RawFrame{Width: 4, Height: 2, Stride: 16, Data: make([]byte, 32)}
	is.True(unknown.Validate() != nil)
}

package videoencoder

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
)

func TestVP8OptionsRequestConstantBitrate(t *testing.T) {
	is := is.New(t)

	opts := map[string]string{}
	for _, kv := range vp8Options(Settings{BitrateKbps: 2500}) {
		opts[kv[0]] = kv[1]
	}
	is.Equal(opts["b"], "2500000")
	is.Equal(opts["minrate"], opts["b"])
	is.Equal(opts["maxrate"], opts["b"])
	is.Equal(opts["deadline"], "realtime")
	is.Equal(opts["lag-in-frames"], "0")
}

func TestFourCCFollowsContainer(t *testing.T) {
	is := is.New(t)

	is.Equal(fourccFor("a.MP4"), "mp4v")
	is.Equal(fourccFor("a.webm"), "VP80")
	is.Equal(fourccFor("a.avi"), "MJPG")
}

func TestOpenCVRejectsOddDimensions(t *testing.T) {
	is := is.New(t)

	_, _, err := OpenCV().Open(Settings{Width: 5, Height: 4, FPS: 10, BitrateKbps: 1, Output: "x.avi"})
	is.True(errors.Is(err, ErrConfig))
}

func TestPackI420DropsStridePadding(t *testing.T) {
	is := is.New(t)

	f := &videoframe.PlanarYUV{
		Width: 2, Height: 2,
		Y: []byte{1, 2, 0, 3, 4, 0}, YStride: 3,
		U: []byte{5, 0}, UStride: 2,
		V: []byte{6, 0}, VStride: 2,
	}
	dst := make([]byte, 6)
	packI420(dst, f)
	is.Equal(dst, []byte{1, 2, 3, 4, 5, 6})
}

func TestCopyToYCbCr(t *testing.T) {
	is := is.New(t)

	f := videoframe.NewPlanarYUV(videoframe.Dimensions{W: 3, H: 3})
	for i := range f.Y {
		f.Y[i] = byte(i)
	}
	f.U[3], f.V[3] = 7, 9

	img := newYCbCr(3, 3)
	copyToYCbCr(img, f)
	is.Equal(img.Y, f.Y)
	is.Equal(img.Cb[3], byte(7))
	is.Equal(img.Cr[3], byte(9))
}

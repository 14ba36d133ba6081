package videoencoder

import (
	"path/filepath"
	"strings"

	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

var openVideoWriter = func(filename, codec string, fps float64, width, height int, isColor bool) (*gocv.VideoWriter, error) {
	return gocv.VideoWriterFile(filename, codec, fps, width, height, isColor)
}

func fourccFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v":
		return "mp4v"
	case ".webm", ".mkv":
		return "VP80"
	default:
		return "MJPG"
	}
}

type openCVBackend struct{}

func OpenCV() Backend {
	return openCVBackend{}
}

func (openCVBackend) Name() string { return "opencv" }

func (openCVBackend) Open(s Settings) (Codec, Sink, error) {
	if s.Width%2 != 0 || s.Height%2 != 0 {
		return nil, nil, xerror.Errorf("%w: opencv needs even dimensions, got %s", ErrConfig, s.Dimensions())
	}

	vw, err := openVideoWriter(s.Output, fourccFor(s.Output), float64(s.FPS), s.Width, s.Height, true)
	if err != nil {
		return nil, nil, xerror.Errorf("unable to open video writer %s: %w", s.Output, err)
	}

	c := &openCVCodec{
		vw:  vw,
		buf: make([]byte, s.Width*s.Height*3/2),
		bgr: gocv.NewMat(),
	}
	return c, videoWriterSink{vw}, nil
}

// openCVCodec hands frames straight to the OpenCV writer which does its
// own muxing, so no packets are ever emitted.
type openCVCodec struct {
	vw  *gocv.VideoWriter
	buf []byte
	bgr gocv.Mat
}

func (c *openCVCodec) SendFrame(f *videoframe.PlanarYUV, index int64) error {
	if c.buf == nil {
		return xerror.New("frame image has been released")
	}
	packI420(c.buf, f)

	yuv, err := gocv.NewMatFromBytes(f.Height*3/2, f.Width, gocv.MatTypeCV8UC1, c.buf)
	if err != nil {
		return xerror.Errorf("unable to wrap frame in OpenCV mat: %w", err)
	}
	defer yuv.Close()

	gocv.CvtColor(yuv, &c.bgr, gocv.ColorYUVToBGRIYUV)
	return c.vw.Write(c.bgr)
}

func (c *openCVCodec) SendFlush() error {
	return nil
}

func (c *openCVCodec) ReceivePacket() (Packet, error) {
	return Packet{}, ErrAgain
}

func (c *openCVCodec) FreeImage() {
	c.buf = nil
}

func (c *openCVCodec) Free() error {
	return c.bgr.Close()
}

type videoWriterSink struct {
	vw *gocv.VideoWriter
}

func (s videoWriterSink) WritePacket(Packet) error {
	return nil
}

func (s videoWriterSink) Close() error {
	return s.vw.Close()
}

// packI420 lays the planes out contiguously as Y, U, V without padding.
func packI420(dst []byte, f *videoframe.PlanarYUV) {
	off := 0
	for y := 0; y < f.Height; y++ {
		off += copy(dst[off:off+f.Width], f.Y[y*f.YStride:])
	}
	c := f.ChromaDimensions()
	for y := 0; y < c.H; y++ {
		off += copy(dst[off:off+c.W], f.U[y*f.UStride:])
	}
	for y := 0; y < c.H; y++ {
		off += copy(dst[off:off+c.W], f.V[y*f.VStride:])
	}
}

package videoencoder

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"

	"github.com/icza/mjpeg"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const defaultJPEGQuality = 75

var newAviWriter = func(path string, width, height, fps int32) (mjpeg.AviWriter, error) {
	return mjpeg.New(path, width, height, fps)
}

type mjpegBackend struct{}

func MJPEG() Backend {
	return mjpegBackend{}
}

func (mjpegBackend) Name() string { return "mjpeg" }

func (mjpegBackend) Open(s Settings) (Codec, Sink, error) {
	aw, err := newAviWriter(s.Output, int32(s.Width), int32(s.Height), int32(s.FPS))
	if err != nil {
		return nil, nil, xerror.Errorf("unable to create AVI file %s: %w", s.Output, err)
	}

	quality := s.JPEGQuality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}

	return &mjpegCodec{
		img:     newYCbCr(s.Width, s.Height),
		quality: quality,
	}, aviSink{aw}, nil
}

// mjpegCodec compresses every frame independently, so each packet is a
// key frame and is ready as soon as the frame was sent.
type mjpegCodec struct {
	img     *image.YCbCr
	quality int
	queue   []Packet
	flushed bool
}

func (c *mjpegCodec) SendFrame(f *videoframe.PlanarYUV, index int64) error {
	if c.img == nil {
		return xerror.New("frame image has been released")
	}
	if c.flushed {
		return xerror.New("codec has been flushed")
	}
	copyToYCbCr(c.img, f)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.img, &jpeg.Options{Quality: c.quality}); err != nil {
		return xerror.Errorf("unable to encode jpeg: %w", err)
	}
	c.queue = append(c.queue, Packet{Data: buf.Bytes(), Index: index, Key: true})
	return nil
}

func (c *mjpegCodec) SendFlush() error {
	c.flushed = true
	return nil
}

func (c *mjpegCodec) ReceivePacket() (Packet, error) {
	if len(c.queue) == 0 {
		if c.flushed {
			return Packet{}, io.EOF
		}
		return Packet{}, ErrAgain
	}
	p := c.queue[0]
	c.queue = c.queue[1:]
	return p, nil
}

func (c *mjpegCodec) FreeImage() {
	c.img = nil
}

func (c *mjpegCodec) Free() error {
	c.queue = nil
	return nil
}

type aviSink struct {
	aw mjpeg.AviWriter
}

func (s aviSink) WritePacket(p Packet) error {
	return s.aw.AddFrame(p.Data)
}

func (s aviSink) Close() error {
	return s.aw.Close()
}

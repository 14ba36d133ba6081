package videoencoder_test

import (
	"errors"
	"io"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/videoencoder"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
)

// bufferingCodec holds frames back until lag frames have been sent,
// like an encoder with lookahead.
type bufferingCodec struct {
	calls   *[]string
	lag     int
	pending []int64
	flushed bool
	sendErr error
}

func (c *bufferingCodec) SendFrame(f *videoframe.PlanarYUV, index int64) error {
	*c.calls = append(*c.calls, "send")
	if c.sendErr != nil {
		return c.sendErr
	}
	c.pending = append(c.pending, index)
	return nil
}

func (c *bufferingCodec) SendFlush() error {
	*c.calls = append(*c.calls, "flush")
	c.flushed = true
	return nil
}

func (c *bufferingCodec) ReceivePacket() (videoencoder.Packet, error) {
	if len(c.pending) == 0 || (!c.flushed && len(c.pending) <= c.lag) {
		if c.flushed {
			return videoencoder.Packet{}, io.EOF
		}
		return videoencoder.Packet{}, videoencoder.ErrAgain
	}
	idx := c.pending[0]
	c.pending = c.pending[1:]
	return videoencoder.Packet{Data: []byte{byte(idx), 0xAB}, Index: idx, Key: idx == 0}, nil
}

func (c *bufferingCodec) FreeImage() { *c.calls = append(*c.calls, "free image") }

func (c *bufferingCodec) Free() error {
	*c.calls = append(*c.calls, "free codec")
	return nil
}

type memorySink struct {
	calls   *[]string
	packets []videoencoder.Packet
	err     error
}

func (s *memorySink) WritePacket(p videoencoder.Packet) error {
	if s.err != nil {
		return s.err
	}
	s.packets = append(s.packets, p)
	return nil
}

func (s *memorySink) Close() error {
	*s.calls = append(*s.calls, "close file")
	return nil
}

type fakeBackend struct {
	codec   *bufferingCodec
	sink    *memorySink
	openErr error
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Open(videoencoder.Settings) (videoencoder.Codec, videoencoder.Sink, error) {
	if b.openErr != nil {
		return nil, nil, b.openErr
	}
	return b.codec, b.sink, nil
}

func newFakeBackend(lag int) (*fakeBackend, *[]string) {
	calls := []string{}
	return &fakeBackend{
		codec: &bufferingCodec{calls: &calls, lag: lag},
		sink:  &memorySink{calls: &calls},
	}, &calls
}

func settings() videoencoder.Settings {
	return videoencoder.Settings{Width: 4, Height: 2, FPS: 10, BitrateKbps: 100, Threads: 1, Output: "out.ivf"}
}

func TestEncoderDrainsBufferedPacketsOnClose(t *testing.T) {
	is := is.New(t)
	defer log.Silence()()

	b, calls := newFakeBackend(2)
	enc, err := videoencoder.Open(settings(), b)
	is.NoErr(err)

	frame := videoframe.NewPlanarYUV(videoframe.Dimensions{W: 4, H: 2})
	var drained int
	for i := int64(0); i < 4; i++ {
		is.NoErr(enc.Submit(frame, i))
		packets, err := enc.DrainPackets()
		is.NoErr(err)
		drained += len(packets)
	}
	is.Equal(drained, 2)

	is.NoErr(enc.Close())
	is.Equal(len(b.sink.packets), 4)
	for i, p := range b.sink.packets {
		is.Equal(p.Index, int64(i))
	}
	is.True(b.sink.packets[0].Key)

	packets, bytes := enc.Stats()
	is.Equal(packets, 4)
	is.Equal(bytes, int64(8))

	is.Equal((*calls)[len(*calls)-4:], []string{"flush", "free image", "free codec", "close file"})
}

func TestEncoderCloseIsIdempotent(t *testing.T) {
	is := is.New(t)
	defer log.Silence()()

	b, calls := newFakeBackend(0)
	enc, err := videoencoder.Open(settings(), b)
	is.NoErr(err)
	is.NoErr(enc.Close())
	is.NoErr(enc.Close())
	is.Equal(*calls, []string{"flush", "free image", "free codec", "close file"})

	err = enc.Submit(videoframe.NewPlanarYUV(videoframe.Dimensions{W: 4, H: 2}), 0)
	is.True(errors.Is(err, videoencoder.ErrSubmission))
}

func TestEncoderSubmitSurfacesCodecErrors(t *testing.T) {
	is := is.New(t)
	defer log.Silence()()

	b, _ := newFakeBackend(0)
	b.codec.sendErr = errors.New("EINVAL")
	enc, err := videoencoder.Open(settings(), b)
	is.NoErr(err)

	err = enc.Submit(videoframe.NewPlanarYUV(videoframe.Dimensions{W: 4, H: 2}), 0)
	is.True(errors.Is(err, videoencoder.ErrSubmission))
}

func TestEncoderSubmitRejectsMismatchedFrame(t *testing.T) {
	is := is.New(t)
	defer log.Silence()()

	b, calls := newFakeBackend(0)
	enc, err := videoencoder.Open(settings(), b)
	is.NoErr(err)

	err = enc.Submit(videoframe.NewPlanarYUV(videoframe.Dimensions{W: 8, H: 2}), 0)
	is.True(errors.Is(err, videoencoder.ErrSubmission))
	is.Equal(len(*calls), 0)
}

func TestEncoderDrainSurfacesWriteErrors(t *testing.T) {
	is := is.New(t)
	defer log.Silence()()

	b, _ := newFakeBackend(0)
	b.sink.err = errors.New("disk full")
	enc, err := videoencoder.Open(settings(), b)
	is.NoErr(err)

	is.NoErr(enc.Submit(videoframe.NewPlanarYUV(videoframe.Dimensions{W: 4, H: 2}), 0))
	_, err = enc.DrainPackets()
	is.True(errors.Is(err, videoencoder.ErrSubmission))
}

func TestOpenRejectsInvalidSettings(t *testing.T) {
	is := is.New(t)

	b, _ := newFakeBackend(0)
	for _, mutate := range []func(*videoencoder.Settings){
		func(s *videoencoder.Settings) { s.Width = 0 },
		func(s *videoencoder.Settings) { s.FPS = 0 },
		func(s *videoencoder.Settings) { s.BitrateKbps = -1 },
		func(s *videoencoder.Settings) { s.Output = "" },
	} {
		s := settings()
		mutate(&s)
		_, err := videoencoder.Open(s, b)
		is.True(errors.Is(err, videoencoder.ErrConfig))
	}
}

func TestOpenWrapsBackendFailureAsConfigError(t *testing.T) {
	is := is.New(t)

	b, _ := newFakeBackend(0)
	b.openErr = errors.New("codec not found")
	_, err := videoencoder.Open(settings(), b)
	is.True(errors.Is(err, videoencoder.ErrConfig))
}

func TestResolve(t *testing.T) {
	is := is.New(t)

	for name, want := range map[string]string{"": "vp8", "vp8": "vp8", "mjpeg": "mjpeg", "opencv": "opencv"} {
		b, err := videoencoder.Resolve(name)
		is.NoErr(err)
		is.Equal(b.Name(), want)
	}

	_, err := videoencoder.Resolve("h264")
	is.True(errors.Is(err, videoencoder.ErrConfig))
}

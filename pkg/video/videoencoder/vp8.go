package videoencoder

import (
	"errors"
	"image"
	"io"
	"strconv"

	"github.com/asticode/go-astiav"
	"github.com/tauraamui/windowcast/pkg/video/ivf"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const vp8EncoderName = "libvpx"

type vp8Backend struct{}

func VP8() Backend {
	return vp8Backend{}
}

func (vp8Backend) Name() string { return "vp8" }

func (vp8Backend) Open(s Settings) (Codec, Sink, error) {
	astiav.SetLogLevel(astiav.LogLevelWarning)

	c, err := openVP8(s)
	if err != nil {
		return nil, nil, err
	}

	w, err := ivf.Create(s.Output, ivf.Header{
		FourCC:        ivf.FourCCVP8,
		Width:         uint16(s.Width),
		Height:        uint16(s.Height),
		TimebaseRate:  uint32(s.FPS),
		TimebaseScale: 1,
	})
	if err != nil {
		c.FreeImage()
		c.Free()
		return nil, nil, err
	}

	return c, ivfSink{w}, nil
}

// vp8Options configures libvpx for constant bitrate realtime encoding.
func vp8Options(s Settings) [][2]string {
	bitrate := strconv.Itoa(s.BitrateKbps * 1000)
	return [][2]string{
		{"b", bitrate},
		{"minrate", bitrate},
		{"maxrate", bitrate},
		{"deadline", "realtime"},
		{"lag-in-frames", "0"},
	}
}

type vp8Codec struct {
	cc    *astiav.CodecContext
	frame *astiav.Frame
	pkt   *astiav.Packet
	img   *image.YCbCr
}

func openVP8(s Settings) (*vp8Codec, error) {
	codec := astiav.FindEncoderByName(vp8EncoderName)
	if codec == nil {
		return nil, xerror.Errorf("%w: codec not found: %s", ErrConfig, vp8EncoderName)
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, xerror.Errorf("%w: unable to allocate codec context", ErrConfig)
	}

	cc.SetWidth(s.Width)
	cc.SetHeight(s.Height)
	cc.SetTimeBase(astiav.NewRational(1, s.FPS))
	cc.SetFramerate(astiav.NewRational(s.FPS, 1))
	cc.SetPixelFormat(astiav.PixelFormatYuv420P)
	cc.SetBitRate(int64(s.BitrateKbps) * 1000)
	cc.SetThreadCount(s.Threads)

	opts := astiav.NewDictionary()
	defer opts.Free()
	for _, kv := range vp8Options(s) {
		if err := opts.Set(kv[0], kv[1], 0); err != nil {
			cc.Free()
			return nil, xerror.Errorf("%w: option %s=%s: %v", ErrConfig, kv[0], kv[1], err)
		}
	}

	if err := cc.Open(codec, opts); err != nil {
		cc.Free()
		return nil, xerror.Errorf("%w: unable to open codec context: %v", ErrConfig, err)
	}

	frame := astiav.AllocFrame()
	if frame == nil {
		cc.Free()
		return nil, xerror.Errorf("%w: unable to allocate frame", ErrConfig)
	}
	frame.SetWidth(s.Width)
	frame.SetHeight(s.Height)
	frame.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := frame.AllocBuffer(0); err != nil {
		frame.Free()
		cc.Free()
		return nil, xerror.Errorf("%w: unable to allocate frame buffer: %v", ErrConfig, err)
	}

	pkt := astiav.AllocPacket()
	if pkt == nil {
		frame.Free()
		cc.Free()
		return nil, xerror.Errorf("%w: unable to allocate packet", ErrConfig)
	}

	return &vp8Codec{
		cc:    cc,
		frame: frame,
		pkt:   pkt,
		img:   newYCbCr(s.Width, s.Height),
	}, nil
}

func (c *vp8Codec) SendFrame(f *videoframe.PlanarYUV, index int64) error {
	if c.frame == nil {
		return xerror.New("frame image has been released")
	}
	copyToYCbCr(c.img, f)

	if err := c.frame.MakeWritable(); err != nil {
		return xerror.Errorf("unable to make frame writable: %w", err)
	}
	if err := c.frame.Data().FromImage(c.img); err != nil {
		return xerror.Errorf("unable to copy image data: %w", err)
	}
	c.frame.SetPts(index)

	return c.cc.SendFrame(c.frame)
}

func (c *vp8Codec) SendFlush() error {
	return c.cc.SendFrame(nil)
}

func (c *vp8Codec) ReceivePacket() (Packet, error) {
	if err := c.cc.ReceivePacket(c.pkt); err != nil {
		if errors.Is(err, astiav.ErrEagain) {
			return Packet{}, ErrAgain
		}
		if errors.Is(err, astiav.ErrEof) {
			return Packet{}, io.EOF
		}
		return Packet{}, err
	}
	defer c.pkt.Unref()

	return Packet{
		Data:  append([]byte(nil), c.pkt.Data()...),
		Index: c.pkt.Pts(),
		Key:   c.pkt.Flags().Has(astiav.PacketFlagKey),
	}, nil
}

func (c *vp8Codec) FreeImage() {
	if c.frame != nil {
		c.frame.Free()
		c.frame = nil
	}
	c.img = nil
}

func (c *vp8Codec) Free() error {
	if c.pkt != nil {
		c.pkt.Free()
		c.pkt = nil
	}
	if c.cc != nil {
		c.cc.Free()
		c.cc = nil
	}
	return nil
}

type ivfSink struct {
	w *ivf.Writer
}

func (s ivfSink) WritePacket(p Packet) error {
	return s.w.WriteFrame(p.Data, uint64(p.Index))
}

func (s ivfSink) Close() error {
	return s.w.Close()
}

func newYCbCr(w, h int) *image.YCbCr {
	return image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
}

// copyToYCbCr copies planes row by row since strides may differ.
func copyToYCbCr(dst *image.YCbCr, src *videoframe.PlanarYUV) {
	for y := 0; y < src.Height; y++ {
		copy(dst.Y[y*dst.YStride:y*dst.YStride+src.Width], src.Y[y*src.YStride:])
	}
	c := src.ChromaDimensions()
	for y := 0; y < c.H; y++ {
		copy(dst.Cb[y*dst.CStride:y*dst.CStride+c.W], src.U[y*src.UStride:])
		copy(dst.Cr[y*dst.CStride:y*dst.CStride+c.W], src.V[y*src.VStride:])
	}
}

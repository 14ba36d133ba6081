package pixconv

import (
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

// YUV420Converter turns packed frames into planar 4:2:0 frames. The returned
// frame and the internal scratch buffer are reused between calls until the
// source dimensions or format change.
//
// Chroma keeps the top-left sample of every 2x2 block, the other three
// samples are dropped.
type YUV420Converter struct {
	frame   *videoframe.PlanarYUV
	format  videoframe.PixelFormat
	stride  int
	scratch []byte
}

func NewYUV420Converter() *YUV420Converter {
	return &YUV420Converter{}
}

func (c *YUV420Converter) Convert(raw *videoframe.RawFrame) (*videoframe.PlanarYUV, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	c.ensure(raw)

	pix, stride, err := c.normalize(raw)
	if err != nil {
		return nil, err
	}

	ToYUV420(c.frame, pix, stride)
	return c.frame, nil
}

// Frame returns the currently held output frame, nil before the first Convert.
func (c *YUV420Converter) Frame() *videoframe.PlanarYUV {
	return c.frame
}

func (c *YUV420Converter) ensure(raw *videoframe.RawFrame) {
	d := raw.Dimensions()
	if c.frame != nil && c.frame.Dimensions() == d && c.format == raw.Format && c.stride == raw.Stride {
		return
	}

	c.frame, c.scratch = nil, nil
	c.frame = videoframe.NewPlanarYUV(d)
	c.format = raw.Format
	c.stride = raw.Stride
	if raw.Format != videoframe.FormatBGRX32 {
		// 7 bytes of slack so an aligned view always fits
		c.scratch = make([]byte, normalizedStride(raw)*raw.Height+7)
	}
}

func normalizedStride(raw *videoframe.RawFrame) int {
	if raw.Format.BytesPerPixel() == 2 {
		return raw.Stride * 2
	}
	return raw.Stride
}

// normalize returns a BGRX view of raw, converting through the reorder fast
// path when the source is not already BGRX.
func (c *YUV420Converter) normalize(raw *videoframe.RawFrame) ([]byte, int, error) {
	if raw.Format == videoframe.FormatBGRX32 {
		return raw.Data, raw.Stride, nil
	}

	stride := normalizedStride(raw)
	size := stride * raw.Height
	dst := AlignedView(c.scratch)[:size]
	src := raw.Data[:raw.Stride*raw.Height]

	switch raw.Format {
	case videoframe.FormatRGBX32:
		if err := reorderAll24(dst, src); err != nil {
			return nil, 0, err
		}
	case videoframe.FormatRGB565:
		if err := expandAll(dst, src, Reorder565, expand565Pixel); err != nil {
			return nil, 0, err
		}
	case videoframe.FormatBGR565:
		if err := expandAll(dst, src, Reorder565, expand565Pixel); err != nil {
			return nil, 0, err
		}
		if err := reorderAll24(dst, dst); err != nil {
			return nil, 0, err
		}
	case videoframe.FormatRGB555:
		if err := expandAll(dst, src, Reorder555, expand555Pixel); err != nil {
			return nil, 0, err
		}
	case videoframe.FormatBGR555:
		if err := expandAll(dst, src, Reorder555, expand555Pixel); err != nil {
			return nil, 0, err
		}
		if err := reorderAll24(dst, dst); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, xerror.Errorf("no conversion for pixel format %s", raw.Format)
	}

	return dst, stride, nil
}

func reorderAll24(dst, src []byte) error {
	n, err := Reorder24(dst, src)
	if err != nil {
		return err
	}
	for i := n; i+4 <= len(dst) && i+4 <= len(src); i += 4 {
		swap24Pixel(dst[i:], src[i:])
	}
	return nil
}

type bulkExpander func(dst, src []byte) (int, error)

func expandAll(dst, src []byte, bulk bulkExpander, pixel func(dst, src []byte)) error {
	n, err := bulk(dst, src)
	if err != nil {
		return err
	}
	for i := n; i+4 <= len(dst) && i/2+2 <= len(src); i += 4 {
		pixel(dst[i:], src[i/2:])
	}
	return nil
}

// ToYUV420 converts BGRX pixels (blue in the lowest byte, red two bytes
// higher) into dst. Luma is written for every pixel, chroma only where both
// coordinates are even.
func ToYUV420(dst *videoframe.PlanarYUV, bgrx []byte, stride int) {
	for y := 0; y < dst.Height; y++ {
		row := bgrx[y*stride:]
		yRow := dst.Y[y*dst.YStride:]
		evenRow := y%2 == 0
		for x := 0; x < dst.Width; x++ {
			px := row[x*4:]
			b, g, r := float64(px[0]), float64(px[1]), float64(px[2])

			yRow[x] = clamp(0.299*r + 0.587*g + 0.114*b)
			if evenRow && x%2 == 0 {
				dst.U[(y/2)*dst.UStride+x/2] = clamp(-0.147*r - 0.289*g + 0.436*b + 128)
				dst.V[(y/2)*dst.VStride+x/2] = clamp(0.615*r - 0.515*g - 0.100*b + 128)
			}
		}
	}
}

// YUV returns the luma and chroma values for a single pixel.
func YUV(r, g, b uint8) (y, u, v uint8) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	return clamp(0.299*fr + 0.587*fg + 0.114*fb),
		clamp(-0.147*fr - 0.289*fg + 0.436*fb + 128),
		clamp(0.615*fr - 0.515*fg - 0.100*fb + 128)
}

func clamp(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

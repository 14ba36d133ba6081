package videoframe

import (
	"fmt"

	"github.com/tauraamui/xerror"
)

type Dimensions struct {
	W, H int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.W, d.H)
}

// ChromaDimensions returns the size of a 4:2:0 chroma plane for luma of d,
// rounding odd sizes up.
func (d Dimensions) ChromaDimensions() Dimensions {
	return Dimensions{W: (d.W + 1) / 2, H: (d.H + 1) / 2}
}

type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	// FormatBGRX32 is 24 bit colour in a 32 bit word, blue in the lowest byte.
	FormatBGRX32
	// FormatRGBX32 is 24 bit colour in a 32 bit word, red in the lowest byte.
	FormatRGBX32
	// FormatBGR565 has red in the high 5 bits of each 16 bit pixel.
	FormatBGR565
	// FormatRGB565 has red in the low 5 bits of each 16 bit pixel.
	FormatRGB565
	FormatBGR555
	FormatRGB555
)

func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatBGRX32, FormatRGBX32:
		return 4
	case FormatBGR565, FormatRGB565, FormatBGR555, FormatRGB555:
		return 2
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatBGRX32:
		return "BGRX32"
	case FormatRGBX32:
		return "RGBX32"
	case FormatBGR565:
		return "BGR565"
	case FormatRGB565:
		return "RGB565"
	case FormatBGR555:
		return "BGR555"
	case FormatRGB555:
		return "RGB555"
	default:
		return "UNKNOWN"
	}
}

// FormatFromMasks maps a visual's channel masks and bits per pixel onto
// a packed format tag.
func FormatFromMasks(bitsPerPixel int, red, green, blue uint32) (PixelFormat, error) {
	switch {
	case bitsPerPixel == 32 && red == 0xFF0000 && green == 0xFF00 && blue == 0xFF:
		return FormatBGRX32, nil
	case bitsPerPixel == 32 && red == 0xFF && green == 0xFF00 && blue == 0xFF0000:
		return FormatRGBX32, nil
	case bitsPerPixel == 16 && red == 0xF800 && green == 0x7E0 && blue == 0x1F:
		return FormatBGR565, nil
	case bitsPerPixel == 16 && red == 0x1F && green == 0x7E0 && blue == 0xF800:
		return FormatRGB565, nil
	case bitsPerPixel == 16 && red == 0x7C00 && green == 0x3E0 && blue == 0x1F:
		return FormatBGR555, nil
	case bitsPerPixel == 16 && red == 0x1F && green == 0x3E0 && blue == 0x7C00:
		return FormatRGB555, nil
	}
	return FormatUnknown, xerror.Errorf(
		"unsupported pixel format (bpp: %d, R: %x, G: %x, B: %x)", bitsPerPixel, red, green, blue,
	)
}

// RawFrame is a packed pixel image. Data is usually backed by a shared
// memory segment owned by whichever frame source created it.
type RawFrame struct {
	Width, Height int
	Stride        int
	Format        PixelFormat
	Data          []byte
}

func (f *RawFrame) Dimensions() Dimensions {
	return Dimensions{W: f.Width, H: f.Height}
}

func (f *RawFrame) Validate() error {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return xerror.Errorf("raw frame has unknown pixel format: %s", f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return xerror.Errorf("raw frame has invalid dimensions: %dx%d", f.Width, f.Height)
	}
	if f.Stride < f.Width*bpp {
		return xerror.Errorf("raw frame stride %d is less than row size %d", f.Stride, f.Width*bpp)
	}
	if len(f.Data) < f.Stride*f.Height {
		return xerror.Errorf("raw frame buffer holds %d bytes, needs %d", len(f.Data), f.Stride*f.Height)
	}
	return nil
}

// PlanarYUV is a 4:2:0 frame with full resolution luma and half
// resolution (rounded up) chroma planes.
type PlanarYUV struct {
	Width, Height             int
	Y, U, V                   []byte
	YStride, UStride, VStride int
}

func NewPlanarYUV(d Dimensions) *PlanarYUV {
	c := d.ChromaDimensions()
	return &PlanarYUV{
		Width: d.W, Height: d.H,
		Y: make([]byte, d.W*d.H), YStride: d.W,
		U: make([]byte, c.W*c.H), UStride: c.W,
		V: make([]byte, c.W*c.H), VStride: c.W,
	}
}

func (p *PlanarYUV) Dimensions() Dimensions {
	return Dimensions{W: p.Width, H: p.Height}
}

func (p *PlanarYUV) ChromaDimensions() Dimensions {
	return p.Dimensions().ChromaDimensions()
}

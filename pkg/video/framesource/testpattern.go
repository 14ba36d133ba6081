package framesource

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const testPatternLabel = "WINDOWCAST_TEST_PATTERN"

var now = time.Now

var (
	parseFontOnce sync.Once
	patternFont   *truetype.Font
	parseFontErr  error
)

func regularFont() (*truetype.Font, error) {
	parseFontOnce.Do(func() {
		patternFont, parseFontErr = freetype.ParseFont(goregular.TTF)
	})
	return patternFont, parseFontErr
}

type TestPatternOptions struct {
	Label     string
	// FailEvery makes every nth grab fail, zero never fails.
	FailEvery int
}

// TestPattern renders three overlapping RGB circles with a label and the
// current time into a BGRX buffer on every grab.
type TestPattern struct {
	opts   TestPatternOptions
	base   *image.RGBA
	canvas *image.RGBA
	face   font.Face
	frame  *videoframe.RawFrame
	grabs  int
}

func OpenTestPattern(d videoframe.Dimensions, opts TestPatternOptions) (*TestPattern, error) {
	if d.W <= 0 || d.H <= 0 {
		return nil, setupErr("test pattern", xerror.Errorf("invalid dimensions %s", d))
	}

	f, err := regularFont()
	if err != nil {
		return nil, setupErr("test pattern font", err)
	}

	if len(opts.Label) == 0 {
		opts.Label = testPatternLabel
	}

	return &TestPattern{
		opts:   opts,
		base:   renderBaseCanvas(d),
		canvas: image.NewRGBA(image.Rect(0, 0, d.W, d.H)),
		face: truetype.NewFace(f, &truetype.Options{
			Size:    math.Max(8, float64(d.H)/8),
			Hinting: font.HintingFull,
		}),
		frame: &videoframe.RawFrame{
			Width:  d.W,
			Height: d.H,
			Stride: d.W * 4,
			Format: videoframe.FormatBGRX32,
			Data:   make([]byte, d.W*d.H*4),
		},
	}, nil
}

func (p *TestPattern) Grab() bool {
	if p.frame.Data == nil {
		return false
	}

	p.grabs++
	if p.opts.FailEvery > 0 && p.grabs%p.opts.FailEvery == 0 {
		log.Debug("Test pattern grab %d failing on purpose", p.grabs)
		return false
	}

	bounds := p.canvas.Bounds()
	draw.Draw(p.canvas, bounds, p.base, bounds.Min, draw.Src)
	lineHeight := bounds.Dy() / 3
	p.drawText(5, lineHeight/2, p.opts.Label)
	p.drawText(5, lineHeight+lineHeight/2, now().Format("2006-01-02 15:04:05.999999999"))

	toBGRX(p.frame.Data, p.canvas)
	return true
}

func (p *TestPattern) drawText(x, y int, text string) {
	drawer := &font.Drawer{
		Dst:  p.canvas,
		Src:  image.White,
		Face: p.face,
	}
	textBounds, _ := drawer.BoundString(text)
	textHeight := (textBounds.Max.Y - textBounds.Min.Y).Ceil()
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y + textHeight/2),
	}
	drawer.DrawString(text)
}

func (p *TestPattern) Frame() *videoframe.RawFrame {
	return p.frame
}

func (p *TestPattern) Close() error {
	p.frame.Data = nil
	p.base, p.canvas = nil, nil
	return p.face.Close()
}

func toBGRX(dst []byte, src *image.RGBA) {
	for i := 0; i+4 <= len(dst) && i+4 <= len(src.Pix); i += 4 {
		dst[i], dst[i+1], dst[i+2], dst[i+3] = src.Pix[i+2], src.Pix[i+1], src.Pix[i], 0xFF
	}
}

func renderBaseCanvas(d videoframe.Dimensions) *image.RGBA {
	hw, hh := float64(d.W)/2, float64(d.H)/2
	r := math.Min(hw, hh) / 2
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), r * 1.5}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), r * 1.5}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), r * 1.5}

	img := image.NewRGBA(image.Rect(0, 0, d.W, d.H))
	for x := 0; x < d.W; x++ {
		for y := 0; y < d.H; y++ {
			img.SetRGBA(x, y, color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			})
		}
	}
	return img
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}

package xwindow

import (
	"bytes"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const maxPropertyLength = 1 << 16

var ErrOpenDisplay = xerror.New("unable to open X display")

var connect = func(name string) (*xgb.Conn, error) {
	return xgb.NewConnDisplay(name)
}

// Display is a connection to an X server and implements Tree over the
// windows of its default screen.
type Display struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo

	netWMName  xproto.Atom
	utf8String xproto.Atom
}

// Open connects to the named display, an empty name selects $DISPLAY.
func Open(name string) (*Display, error) {
	conn, err := connect(name)
	if err != nil {
		return nil, xerror.Errorf("%w %q: %v", ErrOpenDisplay, name, err)
	}

	setup := xproto.Setup(conn)
	d := &Display{
		conn:   conn,
		setup:  setup,
		screen: setup.DefaultScreen(conn),
	}
	d.netWMName = d.atom("_NET_WM_NAME")
	d.utf8String = d.atom("UTF8_STRING")

	return d, nil
}

func (d *Display) Conn() *xgb.Conn {
	return d.conn
}

func (d *Display) Close() error {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}

func (d *Display) atom(name string) xproto.Atom {
	reply, err := xproto.InternAtom(d.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		log.Debug("Unable to intern atom %s: %v", name, err)
		return xproto.AtomNone
	}
	return reply.Atom
}

func (d *Display) Root() Window {
	return Window(d.screen.Root)
}

func (d *Display) Readable(w Window) bool {
	_, err := xproto.GetWindowAttributes(d.conn, xproto.Window(w)).Reply()
	return err == nil
}

func (d *Display) property(w Window, prop, typ xproto.Atom) ([]byte, bool) {
	if prop == xproto.AtomNone {
		return nil, false
	}
	reply, err := xproto.GetProperty(d.conn, false, xproto.Window(w), prop, typ, 0, maxPropertyLength).Reply()
	if err != nil || reply.Format != 8 || reply.ValueLen == 0 {
		return nil, false
	}
	if typ != xproto.GetPropertyTypeAny && reply.Type != typ {
		return nil, false
	}
	return reply.Value, true
}

// LegacyName reads WM_NAME only when it is stored as STRING.
func (d *Display) LegacyName(w Window) (string, bool) {
	v, ok := d.property(w, xproto.AtomWmName, xproto.AtomString)
	return string(v), ok
}

// WMName reads WM_NAME of any encoding, falling back to _NET_WM_NAME.
func (d *Display) WMName(w Window) (string, bool) {
	if v, ok := d.property(w, xproto.AtomWmName, xproto.GetPropertyTypeAny); ok {
		return string(v), true
	}
	v, ok := d.property(w, d.netWMName, d.utf8String)
	return string(v), ok
}

func (d *Display) ClassHint(w Window) (ClassHint, bool) {
	v, ok := d.property(w, xproto.AtomWmClass, xproto.AtomString)
	if !ok {
		return ClassHint{}, false
	}
	return parseClassHint(v), true
}

func parseClassHint(v []byte) ClassHint {
	parts := bytes.SplitN(bytes.TrimRight(v, "\x00"), []byte{0}, 2)
	hint := ClassHint{Instance: string(parts[0])}
	if len(parts) > 1 {
		hint.Class = string(parts[1])
	}
	return hint
}

func (d *Display) Children(w Window) ([]Window, error) {
	reply, err := xproto.QueryTree(d.conn, xproto.Window(w)).Reply()
	if err != nil {
		return nil, err
	}
	children := make([]Window, len(reply.Children))
	for i, c := range reply.Children {
		children[i] = Window(c)
	}
	return children, nil
}

// Geometry describes a window's size and pixel layout as the server
// reports it.
type Geometry struct {
	Width, Height int
	Depth         int
	BitsPerPixel  int
	ScanlinePad   int

	RedMask, GreenMask, BlueMask uint32
}

func (g Geometry) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: g.Width, H: g.Height}
}

// Stride is the byte length of one image row, padded to the scanline unit.
func (g Geometry) Stride() int {
	pad := g.ScanlinePad
	if pad == 0 {
		pad = 32
	}
	bits := g.Width * g.BitsPerPixel
	return ((bits + pad - 1) / pad) * pad / 8
}

func (g Geometry) Format() (videoframe.PixelFormat, error) {
	return videoframe.FormatFromMasks(g.BitsPerPixel, g.RedMask, g.GreenMask, g.BlueMask)
}

// Measure queries the geometry and visual of w.
func (d *Display) Measure(w Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(d.conn, xproto.Drawable(w)).Reply()
	if err != nil {
		return Geometry{}, xerror.Errorf("unable to read geometry of window 0x%x: %w", uint32(w), err)
	}

	attrs, err := xproto.GetWindowAttributes(d.conn, xproto.Window(w)).Reply()
	if err != nil {
		return Geometry{}, xerror.Errorf("unable to read attributes of window 0x%x: %w", uint32(w), err)
	}

	g := Geometry{
		Width:  int(geom.Width),
		Height: int(geom.Height),
		Depth:  int(geom.Depth),
	}

	visual, ok := d.visual(attrs.Visual)
	if !ok {
		return Geometry{}, xerror.Errorf("window 0x%x uses unknown visual 0x%x", uint32(w), uint32(attrs.Visual))
	}
	g.RedMask, g.GreenMask, g.BlueMask = visual.RedMask, visual.GreenMask, visual.BlueMask

	for _, f := range d.setup.PixmapFormats {
		if int(f.Depth) == g.Depth {
			g.BitsPerPixel = int(f.BitsPerPixel)
			g.ScanlinePad = int(f.ScanlinePad)
			break
		}
	}
	if g.BitsPerPixel == 0 {
		return Geometry{}, xerror.Errorf("no pixmap format for depth %d", g.Depth)
	}

	return g, nil
}

func (d *Display) visual(id xproto.Visualid) (xproto.VisualInfo, bool) {
	for _, screen := range d.setup.Roots {
		for _, depth := range screen.AllowedDepths {
			for _, v := range depth.Visuals {
				if v.VisualId == id {
					return v, true
				}
			}
		}
	}
	return xproto.VisualInfo{}, false
}

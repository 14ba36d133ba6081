package framesource

import (
	"errors"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/pixconv"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/windowcast/pkg/xwindow"
	"golang.org/x/sys/unix"
)

const allPlanes = 0xffffffff

// ShmTarget is the display side of a shared memory capture.
type ShmTarget interface {
	Conn() *xgb.Conn
	Measure(xwindow.Window) (xwindow.Geometry, error)
}

var (
	segmentGet    = unix.SysvShmGet
	segmentAttach = unix.SysvShmAttach
	segmentDetach = unix.SysvShmDetach
	segmentRemove = func(id int) error {
		_, err := unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return err
	}

	serverInit = func(conn *xgb.Conn) error {
		return shm.Init(conn)
	}
	serverAttach = func(conn *xgb.Conn, id int) (shm.Seg, error) {
		seg, err := shm.NewSegId(conn)
		if err != nil {
			return 0, err
		}
		if err := shm.AttachChecked(conn, seg, uint32(id), false).Check(); err != nil {
			return 0, err
		}
		return seg, nil
	}
	serverDetach = func(conn *xgb.Conn, seg shm.Seg) error {
		return shm.DetachChecked(conn, seg).Check()
	}
	serverGetImage = func(conn *xgb.Conn, w xwindow.Window, width, height int, seg shm.Seg, offset uint32) error {
		_, err := shm.GetImage(
			conn, xproto.Drawable(w), 0, 0, uint16(width), uint16(height),
			allPlanes, xproto.ImageFormatZPixmap, seg, offset,
		).Reply()
		return err
	}
)

// segment is a SysV shared memory segment id, marked for removal on release.
type segment struct {
	id int
}

func createSegment(size int) (*segment, error) {
	id, err := segmentGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, err
	}
	return &segment{id: id}, nil
}

func (s *segment) release() error {
	return segmentRemove(s.id)
}

// mapping is the local attachment of a segment.
type mapping struct {
	mem []byte
}

func mapSegment(s *segment) (*mapping, error) {
	mem, err := segmentAttach(s.id, 0, 0)
	if err != nil {
		return nil, err
	}
	return &mapping{mem: mem}, nil
}

func (m *mapping) release() error {
	return segmentDetach(m.mem)
}

// remote is the X server's attachment of a segment.
type remote struct {
	conn *xgb.Conn
	seg  shm.Seg
}

func attachRemote(conn *xgb.Conn, s *segment) (*remote, error) {
	seg, err := serverAttach(conn, s.id)
	if err != nil {
		return nil, err
	}
	return &remote{conn: conn, seg: seg}, nil
}

func (r *remote) release() error {
	return serverDetach(r.conn, r.seg)
}

// Shm captures a window through the MIT-SHM extension into a shared
// memory segment sized to the window at open time.
type Shm struct {
	window xwindow.Window
	geom   xwindow.Geometry
	offset int

	seg    *segment
	local  *mapping
	server *remote

	frame  *videoframe.RawFrame
	closed bool
}

func OpenShm(target ShmTarget, h xwindow.Handle) (*Shm, error) {
	geom, err := target.Measure(h.Window)
	if err != nil {
		return nil, setupErr("measure window", err)
	}

	format, err := geom.Format()
	if err != nil {
		return nil, setupErr("pixel format", err)
	}

	conn := target.Conn()
	if err := serverInit(conn); err != nil {
		return nil, setupErr("MIT-SHM extension", err)
	}

	stride := geom.Stride()
	size := stride * geom.Height
	log.Info("Capturing window 0x%x %s (%s, stride %d)", uint32(h.Window), geom.Dimensions(), format, stride)

	// 8 bytes of slack so the image can start on an aligned address
	seg, err := createSegment(size + 8)
	if err != nil {
		return nil, setupErr("create segment", err)
	}

	local, err := mapSegment(seg)
	if err != nil {
		return nil, setupErr("attach segment", unwind(err, seg))
	}

	server, err := attachRemote(conn, seg)
	if err != nil {
		return nil, setupErr("server attach", unwind(err, local, seg))
	}

	view := pixconv.AlignedView(local.mem)
	offset := len(local.mem) - len(view)

	return &Shm{
		window: h.Window,
		geom:   geom,
		offset: offset,
		seg:    seg,
		local:  local,
		server: server,
		frame: &videoframe.RawFrame{
			Width:  geom.Width,
			Height: geom.Height,
			Stride: stride,
			Format: format,
			Data:   view[:size],
		},
	}, nil
}

type releaser interface {
	release() error
}

func unwind(cause error, steps ...releaser) error {
	errs := []error{cause}
	for _, s := range steps {
		if err := s.release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Shm) Grab() bool {
	if s.closed {
		return false
	}
	if err := serverGetImage(s.server.conn, s.window, s.geom.Width, s.geom.Height, s.server.seg, uint32(s.offset)); err != nil {
		log.Debug("Unable to grab window 0x%x: %v", uint32(s.window), err)
		return false
	}
	return true
}

func (s *Shm) Frame() *videoframe.RawFrame {
	return s.frame
}

func (s *Shm) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.server.release(); err != nil {
		errs = append(errs, err)
	}
	if err := s.local.release(); err != nil {
		errs = append(errs, err)
	}
	if err := s.seg.release(); err != nil {
		errs = append(errs, err)
	}
	s.frame.Data = nil

	return errors.Join(errs...)
}

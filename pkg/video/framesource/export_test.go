package framesource

import (
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/shm"
	"github.com/tauraamui/windowcast/pkg/xwindow"
)

type shmOverloads struct {
	get          func(key, size, flag int) (int, error)
	attach       func(id int, addr uintptr, flag int) ([]byte, error)
	detach       func([]byte) error
	remove       func(int) error
	init         func(*xgb.Conn) error
	serverAttach func(*xgb.Conn, int) (shm.Seg, error)
	serverDetach func(*xgb.Conn, shm.Seg) error
	getImage     func(*xgb.Conn, xwindow.Window, int, int, shm.Seg, uint32) error
}

func overloadShm(o shmOverloads) func() {
	g, a, d, r := segmentGet, segmentAttach, segmentDetach, segmentRemove
	i, sa, sd, gi := serverInit, serverAttach, serverDetach, serverGetImage

	if o.get != nil {
		segmentGet = o.get
	}
	if o.attach != nil {
		segmentAttach = o.attach
	}
	if o.detach != nil {
		segmentDetach = o.detach
	}
	if o.remove != nil {
		segmentRemove = o.remove
	}
	if o.init != nil {
		serverInit = o.init
	}
	if o.serverAttach != nil {
		serverAttach = o.serverAttach
	}
	if o.serverDetach != nil {
		serverDetach = o.serverDetach
	}
	if o.getImage != nil {
		serverGetImage = o.getImage
	}

	return func() {
		segmentGet, segmentAttach, segmentDetach, segmentRemove = g, a, d, r
		serverInit, serverAttach, serverDetach, serverGetImage = i, sa, sd, gi
	}
}

func overloadNow(t time.Time) func() {
	n := now
	now = func() time.Time { return t }
	return func() { now = n }
}

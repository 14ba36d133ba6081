package framesource

import (
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const SetupKind = xerror.Kind("frame_source_setup")

var ErrSetup = xerror.NewWithKind(SetupKind, "unable to set up frame source")

// Source provides synchronous "grab the current contents" access to a
// packed pixel buffer it exclusively owns for its lifetime.
type Source interface {
	// Grab refreshes the buffer returned by Frame. It reports false if the
	// contents could not be refreshed, callers should skip that frame.
	Grab() bool
	Frame() *videoframe.RawFrame
	Close() error
}

func setupErr(step string, err error) error {
	return xerror.Errorf("%w: %s: %w", ErrSetup, step, err)
}

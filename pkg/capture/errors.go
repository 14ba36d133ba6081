package capture

import (
	"github.com/tauraamui/windowcast/pkg/video/videoencoder"
	"github.com/tauraamui/windowcast/pkg/xwindow"
	"github.com/tauraamui/xerror"
)

const (
	SetupKind = xerror.Kind("setup")
	GrabKind  = xerror.Kind("grab")
)

var (
	// ErrSetup covers display, window and frame source acquisition.
	ErrSetup            = xerror.NewWithKind(SetupKind, "capture setup failed")
	// ErrGrab marks a single skipped frame, it never ends a session.
	ErrGrab             = xerror.NewWithKind(GrabKind, "frame grab failed")
	ErrNotFound         = xwindow.ErrNotFound
	ErrEncoderConfig    = videoencoder.ErrConfig
	ErrEncodeSubmission = videoencoder.ErrSubmission
)

package videoencoder

import (
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const (
	ConfigKind     = xerror.Kind("encoder_config")
	SubmissionKind = xerror.Kind("encode_submission")
)

var (
	ErrConfig     = xerror.NewWithKind(ConfigKind, "invalid encoder configuration")
	ErrSubmission = xerror.NewWithKind(SubmissionKind, "encoder rejected input")
	// ErrAgain is returned by Codec.ReceivePacket when no packet is ready
	// until more input is sent.
	ErrAgain      = xerror.New("codec needs more input")
)

// Codec is a streaming encoder. ReceivePacket returns ErrAgain while it
// needs more input and io.EOF once a flush has been fully drained.
type Codec interface {
	SendFrame(frame *videoframe.PlanarYUV, index int64) error
	SendFlush() error
	ReceivePacket() (Packet, error)
	// FreeImage releases the staging image frames are copied into.
	FreeImage()
	Free() error
}

// Sink is the container file packets are written to.
type Sink interface {
	WritePacket(Packet) error
	Close() error
}

type Backend interface {
	Name() string
	Open(Settings) (Codec, Sink, error)
}

func Default() Backend {
	return VP8()
}

func Resolve(name string) (Backend, error) {
	switch name {
	case "", "vp8":
		return VP8(), nil
	case "mjpeg":
		return MJPEG(), nil
	case "opencv":
		return OpenCV(), nil
	}
	return nil, xerror.Errorf("%w: unknown encoder %q", ErrConfig, name)
}

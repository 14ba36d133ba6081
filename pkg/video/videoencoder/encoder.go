package videoencoder

import (
	"errors"
	"io"

	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type Settings struct {
	Width, Height int
	FPS           int
	BitrateKbps   int
	Threads       int
	Output        string
	// JPEGQuality only applies to the mjpeg backend.
	JPEGQuality   int
}

func (s Settings) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: s.Width, H: s.Height}
}

func (s Settings) validate() error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return xerror.Errorf("%w: dimensions %s", ErrConfig, s.Dimensions())
	case s.FPS <= 0:
		return xerror.Errorf("%w: fps %d", ErrConfig, s.FPS)
	case s.BitrateKbps <= 0:
		return xerror.Errorf("%w: bitrate %dkbps", ErrConfig, s.BitrateKbps)
	case len(s.Output) == 0:
		return xerror.Errorf("%w: no output path", ErrConfig)
	}
	return nil
}

type Packet struct {
	Data  []byte
	Index int64
	Key   bool
}

// Encoder feeds planar frames into a codec and writes every packet it
// emits to the configured output.
type Encoder struct {
	settings Settings
	backend  string
	codec    Codec
	sink     Sink

	packets int
	bytes   int64
	closed  bool
}

func Open(s Settings, b Backend) (*Encoder, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	codec, sink, err := b.Open(s)
	if err != nil {
		if errors.Is(err, ErrConfig) {
			return nil, err
		}
		return nil, xerror.Errorf("%w: %s: %v", ErrConfig, b.Name(), err)
	}

	log.Info("Opened %s encoder %s @ %dfps %dkbps -> %s", b.Name(), s.Dimensions(), s.FPS, s.BitrateKbps, s.Output)
	return &Encoder{settings: s, backend: b.Name(), codec: codec, sink: sink}, nil
}

func (e *Encoder) Backend() string {
	return e.backend
}

func (e *Encoder) Submit(frame *videoframe.PlanarYUV, index int64) error {
	if e.closed {
		return xerror.Errorf("%w: encoder is closed", ErrSubmission)
	}
	if frame.Dimensions() != e.settings.Dimensions() {
		return xerror.Errorf("%w: frame %s does not match encoder %s", ErrSubmission, frame.Dimensions(), e.settings.Dimensions())
	}
	if err := e.codec.SendFrame(frame, index); err != nil {
		return xerror.Errorf("%w: frame %d: %v", ErrSubmission, index, err)
	}
	return nil
}

// DrainPackets receives every packet the codec has ready and writes
// each one to the output before returning them.
func (e *Encoder) DrainPackets() ([]Packet, error) {
	var packets []Packet
	for {
		p, err := e.codec.ReceivePacket()
		if err != nil {
			if errors.Is(err, ErrAgain) || errors.Is(err, io.EOF) {
				return packets, nil
			}
			return packets, xerror.Errorf("%w: receive packet: %v", ErrSubmission, err)
		}

		if err := e.sink.WritePacket(p); err != nil {
			return packets, xerror.Errorf("%w: write packet %d: %v", ErrSubmission, p.Index, err)
		}
		e.packets++
		e.bytes += int64(len(p.Data))
		packets = append(packets, p)
	}
}

// Stats returns the number of packets and payload bytes written so far.
func (e *Encoder) Stats() (int, int64) {
	return e.packets, e.bytes
}

// Close flushes the codec, drains the remaining packets, then releases
// the image, the codec and the output file in that order.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if err := e.codec.SendFlush(); err != nil {
		errs = append(errs, xerror.Errorf("%w: flush: %v", ErrSubmission, err))
	} else if _, err := e.DrainPackets(); err != nil {
		errs = append(errs, err)
	}

	e.codec.FreeImage()
	if err := e.codec.Free(); err != nil {
		errs = append(errs, err)
	}
	if err := e.sink.Close(); err != nil {
		errs = append(errs, xerror.Errorf("unable to finalise %s: %w", e.settings.Output, err))
	}

	return errors.Join(errs...)
}

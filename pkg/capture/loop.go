package capture

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/framesource"
	"github.com/tauraamui/windowcast/pkg/video/videoencoder"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/windowcast/pkg/xwindow"
	"github.com/tauraamui/xerror"
)

var (
	sleep = time.Sleep
	now   = time.Now
)

type State int

const (
	Idle State = iota
	Located
	Sized
	Recording
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Located:
		return "located"
	case Sized:
		return "sized"
	case Recording:
		return "recording"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Converter interface {
	Convert(*videoframe.RawFrame) (*videoframe.PlanarYUV, error)
}

type Encoder interface {
	Submit(*videoframe.PlanarYUV, int64) error
	DrainPackets() ([]videoencoder.Packet, error)
	Stats() (int, int64)
	Close() error
}

// Deps are the collaborators a loop drives, each is called at most once
// per Run except Converter.
type Deps struct {
	Locate      func(substring string) (xwindow.Handle, error)
	Measure     func(xwindow.Handle) (videoframe.Dimensions, error)
	OpenSource  func(xwindow.Handle, videoframe.Dimensions) (framesource.Source, error)
	OpenEncoder func(videoframe.Dimensions) (Encoder, error)
	Converter   Converter
	// Observe is optional and called after every iteration.
	Observe     func(Progress)
}

type Config struct {
	FPS             int
	DurationSeconds int
}

// Interval is the fixed sleep before every grab. Work done during an
// iteration is not subtracted from it.
func (c Config) Interval() time.Duration {
	return time.Duration(1_000_000/c.FPS) * time.Microsecond
}

func (c Config) TotalFrames() int {
	return c.DurationSeconds * c.FPS
}

type Progress struct {
	Iteration, Total int
	Encoded, Skipped int
}

type Report struct {
	ID         string
	Query      string
	State      State
	Dimensions videoframe.Dimensions
	Iterations int
	Encoded    int
	Skipped    int
	Packets    int
	Bytes      int64
	StartedAt  time.Time
	Elapsed    time.Duration
}

type Loop struct {
	cfg   Config
	deps  Deps
	state State
}

func New(cfg Config, deps Deps) (*Loop, error) {
	if cfg.FPS <= 0 || cfg.DurationSeconds < 0 {
		return nil, xerror.Errorf("%w: fps %d duration %ds", ErrEncoderConfig, cfg.FPS, cfg.DurationSeconds)
	}
	if deps.Locate == nil || deps.Measure == nil || deps.OpenSource == nil || deps.OpenEncoder == nil || deps.Converter == nil {
		return nil, xerror.New("capture loop is missing collaborators")
	}
	return &Loop{cfg: cfg, deps: deps, state: Idle}, nil
}

func (l *Loop) State() State {
	return l.state
}

// Run records the first window matching substring for the configured
// duration. The returned report is filled in even when err is not nil.
func (l *Loop) Run(substring string) (Report, error) {
	r := Report{ID: uuid.NewString(), Query: substring, StartedAt: now()}
	l.state = Idle

	h, err := l.deps.Locate(substring)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, xwindow.ErrEmptyQuery) {
			return l.fail(r, err)
		}
		return l.fail(r, xerror.Errorf("%w: locate window: %w", ErrSetup, err))
	}
	l.state = Located

	dims, err := l.deps.Measure(h)
	if err != nil {
		return l.fail(r, xerror.Errorf("%w: measure window: %w", ErrSetup, err))
	}
	r.Dimensions = dims
	l.state = Sized

	src, err := l.deps.OpenSource(h, dims)
	if err != nil {
		return l.fail(r, xerror.Errorf("%w: open frame source: %w", ErrSetup, err))
	}

	enc, err := l.deps.OpenEncoder(dims)
	if err != nil {
		if cerr := src.Close(); cerr != nil {
			log.Error("Unable to close frame source: %v", cerr)
		}
		if !errors.Is(err, ErrEncoderConfig) {
			err = xerror.Errorf("%w: %w", ErrEncoderConfig, err)
		}
		return l.fail(r, err)
	}
	l.state = Recording

	if err := l.record(&r, src, enc); err != nil {
		l.collectStats(&r, enc)
		err = errors.Join(err, enc.Close(), src.Close())
		return l.fail(r, err)
	}

	l.state = Finished
	var errs []error
	if err := enc.Close(); err != nil {
		errs = append(errs, err)
	}
	l.collectStats(&r, enc)
	if err := src.Close(); err != nil {
		errs = append(errs, xerror.Errorf("unable to close frame source: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return l.fail(r, err)
	}

	r.State = l.state
	r.Elapsed = now().Sub(r.StartedAt)
	log.Info("Recorded %d/%d frames (%d skipped) in %s", r.Encoded, r.Iterations, r.Skipped, r.Elapsed)
	return r, nil
}

func (l *Loop) record(r *Report, src framesource.Source, enc Encoder) error {
	interval := l.cfg.Interval()
	total := l.cfg.TotalFrames()

	for i := 0; i < total; i++ {
		sleep(interval)
		r.Iterations++

		if err := l.step(r, src, enc, i); err != nil {
			return err
		}

		if l.deps.Observe != nil {
			l.deps.Observe(Progress{Iteration: r.Iterations, Total: total, Encoded: r.Encoded, Skipped: r.Skipped})
		}
	}
	return nil
}

func (l *Loop) step(r *Report, src framesource.Source, enc Encoder, i int) error {
	if !src.Grab() {
		log.Warn("%v: iteration %d skipped", ErrGrab, i)
		r.Skipped++
		return nil
	}

	yuv, err := l.deps.Converter.Convert(src.Frame())
	if err != nil {
		log.Warn("%v: iteration %d skipped: %v", ErrGrab, i, err)
		r.Skipped++
		return nil
	}

	if err := enc.Submit(yuv, int64(r.Encoded)); err != nil {
		return err
	}
	r.Encoded++

	if _, err := enc.DrainPackets(); err != nil {
		return err
	}
	return nil
}

func (l *Loop) collectStats(r *Report, enc Encoder) {
	r.Packets, r.Bytes = enc.Stats()
}

func (l *Loop) fail(r Report, err error) (Report, error) {
	l.state = Failed
	r.State = Failed
	r.Elapsed = now().Sub(r.StartedAt)
	return r, err
}

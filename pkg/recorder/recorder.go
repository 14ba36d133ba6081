package recorder

import (
	"github.com/BurntSushi/xgb"
	"github.com/tauraamui/windowcast/pkg/capture"
	"github.com/tauraamui/windowcast/pkg/configdef"
	data "github.com/tauraamui/windowcast/pkg/database"
	"github.com/tauraamui/windowcast/pkg/database/dbconn"
	"github.com/tauraamui/windowcast/pkg/database/models"
	"github.com/tauraamui/windowcast/pkg/database/repos"
	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/framesource"
	"github.com/tauraamui/windowcast/pkg/video/pixconv"
	"github.com/tauraamui/windowcast/pkg/video/videoencoder"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/windowcast/pkg/xwindow"
	"github.com/tauraamui/xerror"
)

// TestPatternDimensions is the frame size used when no display is involved.
var TestPatternDimensions = videoframe.Dimensions{W: 640, H: 480}

// Display is the part of an X connection a session records through.
type Display interface {
	Conn() *xgb.Conn
	Locate(string) (xwindow.Handle, error)
	Measure(xwindow.Window) (xwindow.Geometry, error)
	Close() error
}

var (
	openDisplay = func(name string) (Display, error) {
		d, err := xwindow.Open(name)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	openShm = func(target framesource.ShmTarget, h xwindow.Handle) (framesource.Source, error) {
		s, err := framesource.OpenShm(target, h)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	openHardware = func(cfg framesource.HardwareConfig) (framesource.Source, error) {
		p, err := framesource.LoadHardware()
		if err != nil {
			return nil, err
		}
		hw, err := framesource.OpenHardware(p, cfg)
		if err != nil {
			return nil, err
		}
		return hw, nil
	}
	openEncoder = func(s videoencoder.Settings, b videoencoder.Backend) (capture.Encoder, error) {
		enc, err := videoencoder.Open(s, b)
		if err != nil {
			return nil, err
		}
		log.Info("Encoding with %s into %s", enc.Backend(), s.Output)
		return enc, nil
	}
	connectCatalog = data.Connect
)

// Session records a single window using the given configuration.
type Session struct {
	cfg     configdef.Values
	observe func(capture.Progress)
	display Display
}

func New(cfg configdef.Values) *Session {
	return &Session{cfg: cfg}
}

// OnProgress registers a callback invoked after every capture iteration.
func (s *Session) OnProgress(observe func(capture.Progress)) {
	s.observe = observe
}

func (s *Session) Run(substring string) (capture.Report, error) {
	deps, err := s.deps()
	if err != nil {
		return capture.Report{Query: substring, State: capture.Failed}, err
	}
	defer s.closeDisplay()

	loop, err := capture.New(capture.Config{FPS: s.cfg.FPS, DurationSeconds: s.cfg.DurationSeconds}, deps)
	if err != nil {
		return capture.Report{Query: substring, State: capture.Failed}, err
	}

	report, err := loop.Run(substring)
	if s.cfg.Catalog {
		if cerr := s.catalogue(report); cerr != nil {
			log.Error("Unable to catalogue recording %s: %v", report.ID, cerr)
		}
	}
	return report, err
}

func (s *Session) deps() (capture.Deps, error) {
	deps := capture.Deps{
		Converter: pixconv.NewYUV420Converter(),
		Observe:   s.observe,
		OpenEncoder: func(d videoframe.Dimensions) (capture.Encoder, error) {
			b, err := videoencoder.Resolve(s.cfg.Encoder)
			if err != nil {
				return nil, err
			}
			return openEncoder(s.settings(d), b)
		},
	}

	if s.cfg.Source == configdef.SourceTestPattern {
		s.testPatternDeps(&deps)
		return deps, nil
	}

	d, err := openDisplay(s.cfg.Display)
	if err != nil {
		return deps, xerror.Errorf("%w: %w", capture.ErrSetup, err)
	}
	s.display = d

	deps.Locate = d.Locate
	deps.Measure = func(h xwindow.Handle) (videoframe.Dimensions, error) {
		g, err := d.Measure(h.Window)
		if err != nil {
			return videoframe.Dimensions{}, err
		}
		log.Debug("Window 0x%x is %s at depth %d", uint32(h.Window), g.Dimensions(), g.Depth)
		return g.Dimensions(), nil
	}
	deps.OpenSource = func(h xwindow.Handle, dims videoframe.Dimensions) (framesource.Source, error) {
		if s.cfg.Source == configdef.SourceHardware {
			return openHardware(framesource.HardwareConfig{
				Width:          dims.W,
				Height:         dims.H,
				SamplingRateMs: s.cfg.HardwareSamplingMs,
			})
		}
		return openShm(d, h)
	}
	return deps, nil
}

func (s *Session) testPatternDeps(deps *capture.Deps) {
	var label string
	deps.Locate = func(substring string) (xwindow.Handle, error) {
		if len(substring) == 0 {
			return xwindow.Handle{}, xwindow.ErrEmptyQuery
		}
		label = substring
		return xwindow.Handle{Window: xwindow.None}, nil
	}
	deps.Measure = func(xwindow.Handle) (videoframe.Dimensions, error) {
		return TestPatternDimensions, nil
	}
	deps.OpenSource = func(_ xwindow.Handle, dims videoframe.Dimensions) (framesource.Source, error) {
		p, err := framesource.OpenTestPattern(dims, framesource.TestPatternOptions{Label: label})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (s *Session) settings(d videoframe.Dimensions) videoencoder.Settings {
	return videoencoder.Settings{
		Width:       d.W,
		Height:      d.H,
		FPS:         s.cfg.FPS,
		BitrateKbps: s.cfg.BitrateKbps,
		Threads:     s.cfg.Threads,
		Output:      s.cfg.Output,
		JPEGQuality: s.cfg.JPEGQuality,
	}
}

func (s *Session) closeDisplay() {
	if s.display == nil {
		return
	}
	if err := s.display.Close(); err != nil {
		log.Error("Unable to close display: %v", err)
	}
	s.display = nil
}

func (s *Session) catalogue(r capture.Report) error {
	db, err := connectCatalog()
	if err != nil {
		return err
	}
	return catalogueReport(db, s.cfg, r)
}

func catalogueReport(db dbconn.GormWrapper, cfg configdef.Values, r capture.Report) error {
	repo := repos.RecordingRepository{DB: db}
	return repo.Create(&models.Recording{
		UUID:       r.ID,
		Query:      r.Query,
		Output:     cfg.Output,
		Encoder:    cfg.Encoder,
		Source:     cfg.Source,
		State:      r.State.String(),
		Width:      r.Dimensions.W,
		Height:     r.Dimensions.H,
		FPS:        cfg.FPS,
		Iterations: r.Iterations,
		Encoded:    r.Encoded,
		Skipped:    r.Skipped,
		Packets:    r.Packets,
		Bytes:      r.Bytes,
		StartedAt:  r.StartedAt,
		ElapsedMs:  r.Elapsed.Milliseconds(),
	})
}

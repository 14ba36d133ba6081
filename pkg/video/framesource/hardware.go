package framesource

import (
	"errors"
	"strings"
	"sync"

	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var (
	ErrMissingEntryPoint = xerror.New("hardware provider is missing entry points")
	ErrNoHardware        = xerror.New("no hardware frame grab provider registered")
	ErrHardwareStatus    = xerror.New("hardware provider call failed")
)

// HardwareStatus is a vendor status code, zero means success.
type HardwareStatus int

const HardwareSuccess HardwareStatus = 0

type HardwareHandle uintptr

type HardwareProviderStatus struct {
	CanCreateNow bool
}

type HardwareSessionParams struct {
	Width, Height              int
	SamplingRateMs             int
	WithCursor                 bool
	AllowDirectCapture         bool
	PushModel                  bool
	DisableAutoModesetRecovery bool
}

type HardwareGrabInfo struct {
	Width, Height int
	IsNewFrame    bool
	FrameIndex    uint32
}

// HardwareEntryPoints is the capability table a vendor binding registers.
// Grabs write into the BGRA buffer returned by SetupToSys.
type HardwareEntryPoints struct {
	CreateHandle   func() (HardwareHandle, HardwareStatus)
	GetStatus      func(HardwareHandle) (HardwareProviderStatus, HardwareStatus)
	CreateSession  func(HardwareHandle, HardwareSessionParams) HardwareStatus
	SetupToSys     func(HardwareHandle) ([]byte, HardwareStatus)
	GrabFrame      func(HardwareHandle) (HardwareGrabInfo, HardwareStatus)
	DestroySession func(HardwareHandle) HardwareStatus
	DestroyHandle  func(HardwareHandle) HardwareStatus
	LastError      func(HardwareHandle) string
}

// HardwareProvider is a fully bound capability table.
type HardwareProvider struct {
	ep HardwareEntryPoints
}

// BindHardware checks every entry point is present.
func BindHardware(ep HardwareEntryPoints) (*HardwareProvider, error) {
	var missing []string
	for _, e := range []struct {
		name    string
		present bool
	}{
		{"CreateHandle", ep.CreateHandle != nil},
		{"GetStatus", ep.GetStatus != nil},
		{"CreateSession", ep.CreateSession != nil},
		{"SetupToSys", ep.SetupToSys != nil},
		{"GrabFrame", ep.GrabFrame != nil},
		{"DestroySession", ep.DestroySession != nil},
		{"DestroyHandle", ep.DestroyHandle != nil},
		{"LastError", ep.LastError != nil},
	} {
		if !e.present {
			missing = append(missing, e.name)
		}
	}

	if len(missing) > 0 {
		return nil, xerror.Errorf("%w: %s", ErrMissingEntryPoint, strings.Join(missing, ", "))
	}

	return &HardwareProvider{ep: ep}, nil
}

var (
	hardwareMu     sync.Mutex
	hardwareLoader func() (HardwareEntryPoints, error)
)

// RegisterHardware installs the loader vendor bindings use to expose
// their entry points, usually from an init func.
func RegisterHardware(loader func() (HardwareEntryPoints, error)) {
	hardwareMu.Lock()
	defer hardwareMu.Unlock()
	hardwareLoader = loader
}

// LoadHardware resolves and binds the registered provider.
func LoadHardware() (*HardwareProvider, error) {
	hardwareMu.Lock()
	loader := hardwareLoader
	hardwareMu.Unlock()

	if loader == nil {
		return nil, ErrNoHardware
	}

	ep, err := loader()
	if err != nil {
		return nil, xerror.Errorf("unable to load hardware provider: %w", err)
	}
	return BindHardware(ep)
}

func (p *HardwareProvider) check(h HardwareHandle, call string, status HardwareStatus) error {
	if status == HardwareSuccess {
		return nil
	}
	return xerror.Errorf("%w: %s (status %d): %s", ErrHardwareStatus, call, status, p.ep.LastError(h))
}

type HardwareConfig struct {
	Width, Height  int
	SamplingRateMs int
}

// Hardware grabs full frames through a vendor provider into a system
// memory BGRA buffer.
type Hardware struct {
	p       *HardwareProvider
	handle  HardwareHandle
	frame   *videoframe.RawFrame
	session bool
	closed  bool
}

func OpenHardware(p *HardwareProvider, cfg HardwareConfig) (*Hardware, error) {
	handle, status := p.ep.CreateHandle()
	if err := p.check(handle, "create handle", status); err != nil {
		return nil, setupErr("hardware handle", err)
	}

	hw := &Hardware{p: p, handle: handle}

	providerStatus, status := p.ep.GetStatus(handle)
	if err := p.check(handle, "get status", status); err != nil {
		return nil, setupErr("hardware status", hw.unwind(err))
	}
	if !providerStatus.CanCreateNow {
		return nil, setupErr("hardware status", hw.unwind(xerror.New("capture session cannot be created on this system now")))
	}

	status = p.ep.CreateSession(handle, HardwareSessionParams{
		Width:                      cfg.Width,
		Height:                     cfg.Height,
		SamplingRateMs:             cfg.SamplingRateMs,
		AllowDirectCapture:         true,
		PushModel:                  true,
		DisableAutoModesetRecovery: true,
	})
	if err := p.check(handle, "create capture session", status); err != nil {
		return nil, setupErr("hardware session", hw.unwind(err))
	}
	hw.session = true

	buf, status := p.ep.SetupToSys(handle)
	if err := p.check(handle, "set up system buffer", status); err != nil {
		return nil, setupErr("hardware buffer", hw.unwind(err))
	}
	if len(buf) < cfg.Width*cfg.Height*4 {
		return nil, setupErr("hardware buffer", hw.unwind(xerror.Errorf("buffer holds %d bytes, needs %d", len(buf), cfg.Width*cfg.Height*4)))
	}

	hw.frame = &videoframe.RawFrame{
		Width:  cfg.Width,
		Height: cfg.Height,
		Stride: cfg.Width * 4,
		Format: videoframe.FormatBGRX32,
		Data:   buf,
	}
	return hw, nil
}

func (hw *Hardware) unwind(cause error) error {
	if err := hw.release(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (hw *Hardware) release() error {
	var err error
	if hw.session {
		hw.session = false
		err = hw.p.check(hw.handle, "destroy capture session", hw.p.ep.DestroySession(hw.handle))
	}
	if herr := hw.p.check(hw.handle, "destroy handle", hw.p.ep.DestroyHandle(hw.handle)); herr != nil && err == nil {
		err = herr
	}
	return err
}

func (hw *Hardware) Grab() bool {
	if hw.closed {
		return false
	}
	info, status := hw.p.ep.GrabFrame(hw.handle)
	if err := hw.p.check(hw.handle, "grab frame", status); err != nil {
		log.Debug("Unable to grab hardware frame: %v", err)
		return false
	}
	if info.Width != hw.frame.Width || info.Height != hw.frame.Height {
		log.Debug("Hardware frame %dx%d does not match session %s", info.Width, info.Height, hw.frame.Dimensions())
		return false
	}
	return true
}

func (hw *Hardware) Frame() *videoframe.RawFrame {
	return hw.frame
}

func (hw *Hardware) Close() error {
	if hw.closed {
		return nil
	}
	hw.closed = true
	err := hw.release()
	hw.frame.Data = nil
	return err
}

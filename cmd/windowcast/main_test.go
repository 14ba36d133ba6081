package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/windowcast/pkg/capture"
	"github.com/tauraamui/windowcast/pkg/configdef"
	db "github.com/tauraamui/windowcast/pkg/database"
	"github.com/tauraamui/windowcast/pkg/log"
)

type staticResolver struct {
	values configdef.Values
	err    error
}

func (r staticResolver) Resolve() (configdef.Values, error) { return r.values, r.err }

type errCreator struct{ err error }

func (c errCreator) Create() error { return c.err }

type fakeSession struct {
	query    string
	progress func(capture.Progress)
	report   capture.Report
	err      error
}

func (s *fakeSession) OnProgress(f func(capture.Progress)) { s.progress = f }

func (s *fakeSession) Run(q string) (capture.Report, error) {
	s.query = q
	if s.progress != nil {
		s.progress(capture.Progress{Iteration: 1, Total: 1})
	}
	return s.report, s.err
}

func overload(t *testing.T, s *fakeSession, terminal bool) {
	t.Helper()
	resolverRef, sessionRef, terminalRef := defaultResolver, newSession, isTerminal
	defaultResolver = func() configdef.Resolver {
		return staticResolver{values: configdef.Values{FPS: 10, DurationSeconds: 1, Output: "out.ivf"}}
	}
	newSession = func(configdef.Values) session { return s }
	isTerminal = func() bool { return terminal }
	resetLog := log.Silence()
	t.Cleanup(func() {
		defaultResolver, newSession, isTerminal = resolverRef, sessionRef, terminalRef
		resetLog()
	})
}

func TestManageRequiresExactlyOneArgument(t *testing.T) {
	is := is.New(t)

	_, err := Manage(nil, &bytes.Buffer{})
	is.Equal(err, ErrUsage)

	_, err = Manage([]string{"a", "b"}, &bytes.Buffer{})
	is.Equal(err, ErrUsage)

	_, err = Manage([]string{""}, &bytes.Buffer{})
	is.Equal(err, ErrUsage)
}

func TestManageRecordsMatchingWindow(t *testing.T) {
	is := is.New(t)
	s := &fakeSession{report: capture.Report{Encoded: 10, Skipped: 0, Bytes: 512}}
	overload(t, s, false)

	out := &bytes.Buffer{}
	status, err := Manage([]string{"Game"}, out)
	is.NoErr(err)
	is.Equal(s.query, "Game")
	is.Equal(status, "Recorded 10 frames (0 skipped, 512 bytes) into out.ivf")
	is.Equal(out.Len(), 0)
}

func TestManagePrintsProgressOnTerminal(t *testing.T) {
	is := is.New(t)
	s := &fakeSession{}
	overload(t, s, true)

	out := &bytes.Buffer{}
	_, err := Manage([]string{"Game"}, out)
	is.NoErr(err)
	is.Equal(out.String(), "\rRecording frame 1/1 (0 skipped)\n")
}

func TestManagePropagatesSessionFailure(t *testing.T) {
	is := is.New(t)
	s := &fakeSession{err: capture.ErrNotFound}
	overload(t, s, false)

	_, err := Manage([]string{"Game"}, &bytes.Buffer{})
	is.True(errors.Is(err, capture.ErrNotFound))
}

func TestSetupToleratesExistingFiles(t *testing.T) {
	is := is.New(t)
	defer log.Silence()()

	creatorRef, setupRef := defaultCreator, setupDB
	defer func() { defaultCreator, setupDB = creatorRef, setupRef }()

	defaultCreator = func() configdef.Creator { return errCreator{err: configdef.ErrConfigAlreadyExists} }
	setupDB = func() error { return db.ErrDBAlreadyExists }

	status, err := Manage([]string{"setup"}, &bytes.Buffer{})
	is.NoErr(err)
	is.Equal(status, "Setup successful...")

	setupDB = func() error { return errors.New("denied") }
	_, err = Setup()
	is.Equal(err.Error(), "denied")
}

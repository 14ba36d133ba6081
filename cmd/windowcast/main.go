package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/windowcast/pkg/capture"
	"github.com/tauraamui/windowcast/pkg/config"
	"github.com/tauraamui/windowcast/pkg/configdef"
	db "github.com/tauraamui/windowcast/pkg/database"
	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/windowcast/pkg/recorder"
	"github.com/tauraamui/xerror"
	"golang.org/x/term"
)

const usage = "Usage: windowcast setup | <window name substring>"

var ErrUsage = xerror.New(usage)

type session interface {
	OnProgress(func(capture.Progress))
	Run(string) (capture.Report, error)
}

var (
	defaultResolver = func() configdef.Resolver { return config.DefaultResolver() }
	defaultCreator  = func() configdef.Creator { return config.DefaultCreator() }
	setupDB         = db.Setup
	newSession      = func(cfg configdef.Values) session { return recorder.New(cfg) }
	isTerminal      = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
)

// Setup writes the default config file and creates the recordings catalogue.
func Setup() (string, error) {
	log.Info("Setting up windowcast...")

	err := defaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = setupDB()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func Record(substring string, out io.Writer) (string, error) {
	cfg, err := defaultResolver().Resolve()
	if err != nil {
		return "", err
	}

	if cfg.Debug {
		log.SetLevelFromString("debug")
	}

	s := newSession(cfg)
	if isTerminal() {
		s.OnProgress(func(p capture.Progress) {
			fmt.Fprintf(out, "\rRecording frame %d/%d (%d skipped)", p.Iteration, p.Total, p.Skipped)
			if p.Iteration == p.Total {
				fmt.Fprintln(out)
			}
		})
	}

	log.Info("Recording window matching %q for %ds at %dfps...", substring, cfg.DurationSeconds, cfg.FPS)
	report, err := s.Run(substring)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Recorded %d frames (%d skipped, %d bytes) into %s",
		report.Encoded, report.Skipped, report.Bytes, cfg.Output,
	), nil
}

func Manage(args []string, out io.Writer) (string, error) {
	if len(args) != 1 || len(args[0]) == 0 {
		return "", ErrUsage
	}

	if args[0] == "setup" {
		return Setup()
	}
	return Record(args[0], out)
}

func init() {
	log.SetLevelFromString(os.Getenv(log.LevelEnvKey))
}

func main() {
	status, err := Manage(os.Args[1:], os.Stdout)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}

// Package utils contains internal helper functions for the statecore command.
package utils

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/entropy"
	"github.com/entropyio/go-statecore/logger"
	"gopkg.in/urfave/cli.v1"
)

var log = logger.NewLogger("[cmd]")

// NewApp creates an app with sane defaults.
func NewApp(gitCommit, usage string) *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Author = ""
	app.Email = ""
	app.Version = config.VersionWithCommit(gitCommit)
	app.Usage = usage
	return app
}

// MakeService opens the chain database under the configured data directory
// and starts the state service on top of it.
func MakeService(cfg *config.Config) (*entropy.Entropy, error) {
	db, err := entropy.OpenDatabase(&cfg.Node)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := entropy.New(cfg, db, nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// WaitForInterrupt blocks until SIGINT or SIGTERM, then closes the service.
// Further interrupts while closing are counted down to a panic.
func WaitForInterrupt(s *entropy.Entropy) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	log.Info("Got interrupt, shutting down...")

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	for i := 10; i > 0; i-- {
		select {
		case err := <-done:
			return err
		case <-sigc:
			if i > 1 {
				log.Warning("Already shutting down, interrupt more to panic.", "times", i-1)
			}
		}
	}
	panic("boom")
}

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// MigrateFlags sets the global flag from a local flag when it's set.
// This is a temporary function used for migrating old command/flags to the
// new format.
func MigrateFlags(action func(ctx *cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		for _, name := range ctx.FlagNames() {
			if ctx.IsSet(name) {
				ctx.GlobalSet(name, ctx.String(name))
			}
		}
		return action(ctx)
	}
}

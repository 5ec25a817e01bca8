// Package logger sets up the module loggers shared by every package of the
// node. Each package keeps one `var log = logger.NewLogger("[name]")`.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/op/go-logging"
)

const defaultFormat = `%{color}%{time:01-02|15:04:05.000} %{level:.4s} %{module}%{color:reset} %{message}`

var (
	backendOnce sync.Once
	leveled     logging.LeveledBackend
)

func setup() {
	backendOnce.Do(func() {
		setOutput(colorable.NewColorableStderr(), logging.INFO)
	})
}

// SetOutput replaces the shared backend, writing to w at the given level.
func SetOutput(w io.Writer, level logging.Level) {
	backendOnce.Do(func() {})
	setOutput(w, level)
}

func setOutput(w io.Writer, level logging.Level) {
	backend := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(defaultFormat))
	leveled = logging.AddModuleLevel(formatted)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}

// NewLogger returns the logger for the named module.
func NewLogger(module string) *logging.Logger {
	setup()
	return logging.MustGetLogger(module)
}

// SetLevel changes the level of every module logger. Accepted names are
// debug, info, notice, warning, error and critical.
func SetLevel(name string) error {
	setup()
	level, err := logging.LogLevel(strings.ToUpper(name))
	if err != nil {
		return fmt.Errorf("unknown log level %q", name)
	}
	leveled.SetLevel(level, "")
	return nil
}

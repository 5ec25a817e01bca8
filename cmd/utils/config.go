package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/logger"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"
)

// GitCommit is set by the linker.
var GitCommit = ""

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// LoadConfig decodes the TOML file over cfg. Keys absent from the file keep
// the value already in cfg.
func LoadConfig(file string, cfg *config.Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// WriteConfig encodes cfg as TOML.
func WriteConfig(w io.Writer, cfg *config.Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// MakeConfig loads the defaults, the --config file and finally the command
// line flags, in that order of precedence.
func MakeConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if file := ctx.GlobalString(ConfigFileFlag.Name); file != "" {
		if err := LoadConfig(file, cfg); err != nil {
			return nil, err
		}
	}
	SetNodeConfig(ctx, &cfg.Node)

	if err := logger.SetLevel(cfg.Node.LogLevel); err != nil {
		return nil, err
	}
	if err := cfg.Chain.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain configuration: %w", err)
	}
	return cfg, nil
}

// SetNodeConfig applies the node related command line flags.
func SetNodeConfig(ctx *cli.Context, cfg *config.NodeConfig) {
	if ctx.GlobalIsSet(DataDirFlag.Name) {
		cfg.DataDir = expandPath(ctx.GlobalString(DataDirFlag.Name))
	}
	if ctx.GlobalIsSet(LogLevelFlag.Name) {
		cfg.LogLevel = ctx.GlobalString(LogLevelFlag.Name)
	}
	if ctx.GlobalIsSet(ValidatorKeyFlag.Name) {
		cfg.ValidatorKey = ctx.GlobalString(ValidatorKeyFlag.Name)
	}
}

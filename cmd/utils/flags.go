package utils

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/entropyio/go-statecore/config"
	"gopkg.in/urfave/cli.v1"
)

// DirectoryString is a flag.Value holding an expanded file system path.
type DirectoryString struct {
	Value string
}

func (ds *DirectoryString) String() string {
	return ds.Value
}

func (ds *DirectoryString) Set(value string) error {
	ds.Value = expandPath(value)
	return nil
}

// DirectoryFlag is a cli.Flag for directories; "~/" and environment
// variables are expanded on parse.
type DirectoryFlag struct {
	Name  string
	Value DirectoryString
	Usage string
}

func (f DirectoryFlag) String() string {
	fmtString := "%s %v\t%v"
	if len(f.Value.Value) > 0 {
		fmtString = "%s \"%v\"\t%v"
	}
	return fmt.Sprintf(fmtString, prefixedNames(f.Name), f.Value.Value, f.Usage)
}

func (f DirectoryFlag) GetName() string {
	return f.Name
}

func (f DirectoryFlag) Apply(set *flag.FlagSet) {
	eachName(f.Name, func(name string) {
		set.Var(&f.Value, name, f.Usage)
	})
}

var (
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	DataDirFlag = DirectoryFlag{
		Name:  "datadir",
		Usage: "Data directory for the databases",
		Value: DirectoryString{config.DefaultDataDir()},
	}
	LogLevelFlag = cli.StringFlag{
		Name:  "loglevel",
		Usage: "Logging verbosity: critical, error, warning, notice, info, debug",
		Value: "info",
	}
	ValidatorKeyFlag = cli.StringFlag{
		Name:  "validatorkey",
		Usage: "Hex encoded secp256k1 key used to sign produced blocks",
	}
	MineFlag = cli.BoolFlag{
		Name:  "mine",
		Usage: "Enable block production (needs --validatorkey)",
	}
	JSONFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "Print machine readable JSON instead of a table",
	}

	NodeFlags = []cli.Flag{
		ConfigFileFlag,
		DataDirFlag,
		LogLevelFlag,
		ValidatorKeyFlag,
	}
)

// expandPath replaces a leading tilde with the home directory, expands
// environment variables and cleans the result.
// Note, ~someuser/tmp is not expanded.
func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~\\") {
		if home := homeDir(); home != "" {
			p = home + p[1:]
		}
	}
	return path.Clean(os.ExpandEnv(p))
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func eachName(longName string, fn func(string)) {
	for _, name := range strings.Split(longName, ",") {
		fn(strings.TrimSpace(name))
	}
}

func prefixedNames(fullName string) (prefixed string) {
	parts := strings.Split(fullName, ",")
	for i, name := range parts {
		name = strings.TrimSpace(name)
		if len(name) == 1 {
			prefixed += "-" + name
		} else {
			prefixed += "--" + name
		}
		if i < len(parts)-1 {
			prefixed += ", "
		}
	}
	return
}

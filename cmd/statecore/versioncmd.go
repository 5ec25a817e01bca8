package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/entropyio/go-statecore/cmd/utils"
	"github.com/entropyio/go-statecore/config"
	"gopkg.in/urfave/cli.v1"
)

var versionCommand = cli.Command{
	Action:    version,
	Name:      "version",
	Usage:     "Print version numbers",
	ArgsUsage: " ",
	Category:  "MISCELLANEOUS COMMANDS",
	Description: `
The output of this command is supposed to be machine-readable.
`,
}

func version(*cli.Context) error {
	fmt.Println(strings.Title(config.ClientIdentifier))
	fmt.Println("Version:", config.VersionWithMeta)
	if utils.GitCommit != "" {
		fmt.Println("Git Commit:", utils.GitCommit)
	}
	fmt.Println("Architecture:", runtime.GOARCH)
	fmt.Println("Go Version:", runtime.Version())
	fmt.Println("Operating System:", runtime.GOOS)
	fmt.Printf("GOPATH=%s\n", os.Getenv("GOPATH"))
	fmt.Printf("GOROOT=%s\n", runtime.GOROOT())
	return nil
}

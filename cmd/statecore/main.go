// statecore is the command line client of the state and block production
// engine.
package main

import (
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/entropyio/go-statecore/cmd/utils"
	"github.com/entropyio/go-statecore/logger"
	"gopkg.in/urfave/cli.v1"
)

var log = logger.NewLogger("[statecore]")

var app = utils.NewApp(utils.GitCommit, "the statecore command line interface")

func init() {
	app.Action = statecore
	app.HideVersion = true // we have a command to print the version
	app.Copyright = "Copyright 2022 The Entropy Authors"
	app.Commands = []cli.Command{
		initCommand,
		dumpCommand,
		faucetCommand,
		blockCommand,
		dumpConfigCommand,
		versionCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Flags = append(app.Flags, utils.NodeFlags...)
	app.Flags = append(app.Flags, utils.MineFlag)

	app.Before = func(ctx *cli.Context) error {
		runtime.GOMAXPROCS(runtime.NumCPU())
		return logger.SetLevel(ctx.GlobalString(utils.LogLevelFlag.Name))
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// statecore runs the node until interrupted, producing blocks when --mine
// is set.
func statecore(ctx *cli.Context) error {
	if args := ctx.Args(); len(args) > 0 {
		return fmt.Errorf("invalid command: %q", args[0])
	}
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	s, err := utils.MakeService(cfg)
	if err != nil {
		return err
	}
	head := s.BlockChain().LatestBlock()
	log.Infof("Node started. height: %d, hash: %s", head.Height(), head.Hash().Hex())

	if ctx.GlobalBool(utils.MineFlag.Name) {
		if cfg.Node.ValidatorKey == "" {
			s.Close()
			return fmt.Errorf("--%s requires a validator key", utils.MineFlag.Name)
		}
		s.StartMining()
	}
	return utils.WaitForInterrupt(s)
}

package main

import (
	"fmt"

	"github.com/entropyio/go-statecore/cmd/utils"
	"github.com/entropyio/go-statecore/common"
	"gopkg.in/urfave/cli.v1"
)

var faucetCommand = cli.Command{
	Action:    utils.MigrateFlags(faucet),
	Name:      "faucet",
	Usage:     "Credit the faucet amount to an account",
	ArgsUsage: "<address>",
	Flags:     utils.NodeFlags,
	Category:  "ACCOUNT COMMANDS",
	Description: `
The faucet command credits the configured faucet amount to the given
address and persists the ledger.`,
}

func faucet(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if !common.IsHexAddress(arg) {
		return fmt.Errorf("invalid address %q", arg)
	}
	addr := common.HexToAddress(arg)

	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	s, err := utils.MakeService(cfg)
	if err != nil {
		return err
	}
	if err := s.Faucet(addr); err != nil {
		s.Close()
		return err
	}
	balance := s.GetBalance(addr)
	if err := s.Close(); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "%s balance %s\n", addr.Hex(), balance.ToBig().String())
	return nil
}

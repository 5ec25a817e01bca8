package main

import (
	"fmt"

	"github.com/entropyio/go-statecore/cmd/utils"
	"gopkg.in/urfave/cli.v1"
)

var initCommand = cli.Command{
	Action:    utils.MigrateFlags(initGenesis),
	Name:      "init",
	Usage:     "Bootstrap and initialize the genesis block and ledger",
	ArgsUsage: " ",
	Flags:     utils.NodeFlags,
	Category:  "BLOCKCHAIN COMMANDS",
	Description: `
The init command writes the genesis block of the configured chain and seeds
the genesis accounts into an empty data directory. Running it against an
initialised directory only checks that the stored genesis matches.`,
}

func initGenesis(ctx *cli.Context) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	s, err := utils.MakeService(cfg)
	if err != nil {
		return err
	}
	genesis := s.BlockChain().Genesis()
	accounts := len(s.StateDB().Accounts())
	if err := s.Close(); err != nil {
		return err
	}
	log.Infof("Successfully wrote genesis state. hash: %s, accounts: %d", genesis.Hash().Hex(), accounts)
	fmt.Fprintln(ctx.App.Writer, genesis.Hash().Hex())
	return nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/entropyio/go-statecore/cmd/utils"
	"github.com/entropyio/go-statecore/config"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var (
	dumpCommand = cli.Command{
		Action:    utils.MigrateFlags(dump),
		Name:      "dump",
		Usage:     "Dump the account ledger",
		ArgsUsage: " ",
		Flags:     append(utils.NodeFlags, utils.JSONFlag),
		Category:  "BLOCKCHAIN COMMANDS",
		Description: `
The dump command prints every account of the persisted ledger ordered by
address, together with the chain head.`,
	}
	blockCommand = cli.Command{
		Action:    utils.MigrateFlags(printBlock),
		Name:      "block",
		Usage:     "Print a block of the canonical chain",
		ArgsUsage: "[<height>]",
		Flags:     utils.NodeFlags,
		Category:  "BLOCKCHAIN COMMANDS",
		Description: `
The block command prints the block at the given height, or the head block
when no height is given.`,
	}
	dumpConfigCommand = cli.Command{
		Action:      utils.MigrateFlags(dumpConfig),
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   " ",
		Flags:       utils.NodeFlags,
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values in TOML.`,
	}
)

func dump(ctx *cli.Context) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	s, err := utils.MakeService(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	w := ctx.App.Writer
	if ctx.Bool(utils.JSONFlag.Name) {
		fmt.Fprintln(w, string(s.StateDB().Dump()))
		return nil
	}
	head := s.BlockChain().LatestBlock()
	color.New(color.FgGreen, color.Bold).Fprintf(w, "Chain %d, head #%d %s\n",
		cfg.Chain.ChainID, head.Height(), head.Hash().Hex())

	ledger := s.StateDB().RawDump()
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Address", "Balance", "Nonce"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, acc := range ledger.Accounts {
		table.Append([]string{acc.Address, acc.Balance, strconv.FormatUint(uint64(acc.Nonce), 10)})
	}
	table.SetFooter([]string{"Accounts", strconv.Itoa(len(ledger.Accounts)), ""})
	table.Render()
	return nil
}

func printBlock(ctx *cli.Context) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	s, err := utils.MakeService(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	chain := s.BlockChain()
	block := chain.LatestBlock()
	if arg := ctx.Args().First(); arg != "" {
		height, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid block height %q: %v", arg, err)
		}
		if block = chain.GetBlockByHeight(height); block == nil {
			return fmt.Errorf("block #%d not found", height)
		}
	}
	w := ctx.App.Writer
	color.New(color.FgCyan).Fprintf(w, "Block #%d %s\n", block.Height(), block.Hash().Hex())
	spew.Fdump(w, block.Header())
	for i, tx := range block.ValidatorTransactions() {
		fmt.Fprintf(w, "coordination tx %d: %s from %s nonce %d\n", i, tx.Hash().Hex(), tx.From().Hex(), tx.Nonce())
	}
	for i, tx := range block.Transactions() {
		fmt.Fprintf(w, "tx %d: %s from %s to %s value %v nonce %d\n", i, tx.Hash().Hex(), tx.From().Hex(), tx.To().Hex(), tx.Value(), tx.Nonce())
	}
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		return err
	}
	// the key stays out of shared output
	if cfg.Node.ValidatorKey != "" {
		cfg.Node.ValidatorKey = "<redacted>"
	}
	fmt.Fprintf(ctx.App.Writer, "# statecore %s\n\n", config.VersionWithMeta)
	return utils.WriteConfig(ctx.App.Writer, cfg)
}

package main

import (
	"errors"
	"os"

	"github.com/calehh/gov-app/tx"
	gov_types "github.com/calehh/gov-app/types"
	"github.com/spf13/cobra"
)

type proposeArguments struct {
	txArguments
	Title    string
	Contents string
	File     string
	Category string
	Amount   uint64
}

var proposeArgs proposeArguments

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Submit a new proposal",
	Args:  cobra.NoArgs,
	RunE:  proposeRun,
}

func init() {
	txFlags(proposeCmd, &proposeArgs.txArguments)
	proposeCmd.Flags().StringVarP(&proposeArgs.Title, "title", "t", "", "proposal title")
	proposeCmd.Flags().StringVarP(&proposeArgs.Contents, "contents", "c", "", "proposal contents")
	proposeCmd.Flags().StringVarP(&proposeArgs.File, "file", "f", "", "read the contents from a file")
	proposeCmd.Flags().StringVarP(&proposeArgs.Category, "category", "", gov_types.CategorySignaling.String(), "referendum | funding | network_change | signaling | upgrade")
	proposeCmd.Flags().Uint64VarP(&proposeArgs.Amount, "amount", "", 0, "requested amount of a funding proposal")
	_ = proposeCmd.MarkFlagRequired("title")
}

func proposeRun(cmd *cobra.Command, args []string) error {
	contents := []byte(proposeArgs.Contents)
	if proposeArgs.File != "" {
		if len(contents) > 0 {
			return errors.New("--contents and --file are exclusive")
		}
		var err error
		if contents, err = os.ReadFile(proposeArgs.File); err != nil {
			return err
		}
	}
	category, err := gov_types.ParseCategory(proposeArgs.Category, proposeArgs.Amount)
	if err != nil {
		return err
	}
	stx := &tx.ProposalTx{
		Title:    []byte(proposeArgs.Title),
		Contents: contents,
		Category: category,
	}
	return sendTx(cmd, &proposeArgs.txArguments, tx.GovTxTypeProposal, stx)
}

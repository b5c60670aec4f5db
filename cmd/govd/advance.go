package main

import (
	"github.com/calehh/gov-app/tx"
	gov_types "github.com/calehh/gov-app/types"
	"github.com/spf13/cobra"
)

type advanceArguments struct {
	txArguments
	Proposal string
}

var advanceArgs advanceArguments

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Move an own proposal to its next stage",
	Args:  cobra.NoArgs,
	RunE:  advanceRun,
}

func init() {
	txFlags(advanceCmd, &advanceArgs.txArguments)
	proposalFlag(advanceCmd, &advanceArgs.Proposal)
}

func advanceRun(cmd *cobra.Command, args []string) error {
	id, err := gov_types.ParseProposalID(advanceArgs.Proposal)
	if err != nil {
		return err
	}
	return sendTx(cmd, &advanceArgs.txArguments, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: id})
}

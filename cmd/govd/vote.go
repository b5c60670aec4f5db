package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calehh/gov-app/tx"
	gov_types "github.com/calehh/gov-app/types"
	"github.com/spf13/cobra"
)

type voteArguments struct {
	txArguments
	Proposal string
	Choice   string
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote on a proposal in its voting stage",
	Args:  cobra.NoArgs,
	RunE:  voteRun,
}

func init() {
	txFlags(voteCmd, &voteArgs.txArguments)
	proposalFlag(voteCmd, &voteArgs.Proposal)
	voteCmd.Flags().StringVarP(&voteArgs.Choice, "choice", "c", "", "yes | no")
	_ = voteCmd.MarkFlagRequired("choice")
}

func parseChoice(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	choice, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid choice %q", s)
	}
	return choice, nil
}

func voteRun(cmd *cobra.Command, args []string) error {
	id, err := gov_types.ParseProposalID(voteArgs.Proposal)
	if err != nil {
		return err
	}
	choice, err := parseChoice(voteArgs.Choice)
	if err != nil {
		return err
	}
	return sendTx(cmd, &voteArgs.txArguments, tx.GovTxTypeVote, &tx.VoteTx{Proposal: id, Choice: choice})
}

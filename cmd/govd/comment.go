package main

import (
	"github.com/calehh/gov-app/tx"
	gov_types "github.com/calehh/gov-app/types"
	"github.com/spf13/cobra"
)

type commentArguments struct {
	txArguments
	Proposal string
	Text     string
}

var commentArgs commentArguments

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Comment on a proposal",
	Args:  cobra.NoArgs,
	RunE:  commentRun,
}

func init() {
	txFlags(commentCmd, &commentArgs.txArguments)
	proposalFlag(commentCmd, &commentArgs.Proposal)
	commentCmd.Flags().StringVarP(&commentArgs.Text, "text", "t", "", "comment text")
}

func commentRun(cmd *cobra.Command, args []string) error {
	id, err := gov_types.ParseProposalID(commentArgs.Proposal)
	if err != nil {
		return err
	}
	stx := &tx.CommentTx{
		Proposal: id,
		Text:     []byte(commentArgs.Text),
	}
	return sendTx(cmd, &commentArgs.txArguments, tx.GovTxTypeComment, stx)
}

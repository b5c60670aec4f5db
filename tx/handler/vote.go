package handler

import (
	"context"

	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type VoteTxHandler struct {
	baseHandler
}

func NewVoteTxHandler(logger cmtlog.Logger, policy gov.TallyPolicy) (h *VoteTxHandler) {
	h = &VoteTxHandler{
		baseHandler: newBaseHandler(logger, policy, "voteTx"),
	}
	return
}

func (h *VoteTxHandler) apply(k *gov.Keeper, btx *tx.GovTx) error {
	vtx := btx.Tx.(*tx.VoteTx)
	return k.SubmitVote(btx.Sender(), vtx.Proposal, vtx.Choice)
}

func (h *VoteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return h.check(st, btx, h.apply)
}

func (h *VoteTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.process(st, btx, h.apply)
}

package handler

import (
	"context"

	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ProposalTxHandler struct {
	baseHandler
}

func NewProposalTxHandler(logger cmtlog.Logger, policy gov.TallyPolicy) (h *ProposalTxHandler) {
	h = &ProposalTxHandler{
		baseHandler: newBaseHandler(logger, policy, "proposalTx"),
	}
	return
}

func (h *ProposalTxHandler) apply(k *gov.Keeper, btx *tx.GovTx) error {
	ptx := btx.Tx.(*tx.ProposalTx)
	_, err := k.CreateProposal(btx.Sender(), ptx.Title, ptx.Contents, ptx.Category)
	return err
}

func (h *ProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return h.check(st, btx, h.apply)
}

func (h *ProposalTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.process(st, btx, h.apply)
}

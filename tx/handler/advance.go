package handler

import (
	"context"

	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type AdvanceTxHandler struct {
	baseHandler
}

func NewAdvanceTxHandler(logger cmtlog.Logger, policy gov.TallyPolicy) (h *AdvanceTxHandler) {
	h = &AdvanceTxHandler{
		baseHandler: newBaseHandler(logger, policy, "advanceTx"),
	}
	return
}

func (h *AdvanceTxHandler) apply(k *gov.Keeper, btx *tx.GovTx) error {
	atx := btx.Tx.(*tx.AdvanceTx)
	return k.AdvanceProposal(btx.Sender(), atx.Proposal)
}

func (h *AdvanceTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return h.check(st, btx, h.apply)
}

func (h *AdvanceTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.process(st, btx, h.apply)
}

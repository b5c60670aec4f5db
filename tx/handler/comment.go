package handler

import (
	"context"

	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type CommentTxHandler struct {
	baseHandler
}

func NewCommentTxHandler(logger cmtlog.Logger, policy gov.TallyPolicy) (h *CommentTxHandler) {
	h = &CommentTxHandler{
		baseHandler: newBaseHandler(logger, policy, "commentTx"),
	}
	return
}

func (h *CommentTxHandler) apply(k *gov.Keeper, btx *tx.GovTx) error {
	ctt := btx.Tx.(*tx.CommentTx)
	return k.AddComment(btx.Sender(), ctt.Proposal, ctt.Text)
}

func (h *CommentTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return h.check(st, btx, h.apply)
}

func (h *CommentTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.process(st, btx, h.apply)
}

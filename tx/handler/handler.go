package handler

import (
	"context"

	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/tx"
	gov_types "github.com/calehh/gov-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TxHandler applies one transaction type to a block state. Governance
// failures are reported through the result code, err is only set when the
// transaction cannot be handled at all.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error)
}

type applyFunc func(k *gov.Keeper, btx *tx.GovTx) error

type baseHandler struct {
	logger cmtlog.Logger
	policy gov.TallyPolicy
}

func newBaseHandler(logger cmtlog.Logger, policy gov.TallyPolicy, name string) baseHandler {
	if policy == nil {
		policy = gov.MajorityPolicy{}
	}
	return baseHandler{
		logger: logger.With("module", name),
		policy: policy,
	}
}

func (h *baseHandler) run(st *state.State, btx *tx.GovTx, apply applyFunc) (events []abcitypes.Event, err error) {
	rec := gov.NewEventRecorder()
	k := gov.NewKeeper(st, rec, h.logger, gov.WithTallyPolicy(h.policy))
	if err = apply(k, btx); err != nil {
		return nil, err
	}
	for _, ev := range rec.Drain() {
		events = append(events, gov_types.EncodeEvent(ev))
	}
	return events, nil
}

func (h *baseHandler) check(st *state.State, btx *tx.GovTx, apply applyFunc) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: gov.CodeOK}
	_, err1 := h.run(st, btx, apply)
	if err1 != nil {
		h.logger.Info("CheckTx fail", "type", btx.Type, "err", err1)
		res.Code = gov.ErrorCode(err1)
		res.Log = err1.Error()
	}
	return
}

func (h *baseHandler) process(st *state.State, btx *tx.GovTx, apply applyFunc) (res *abcitypes.ExecTxResult, err error) {
	res = &abcitypes.ExecTxResult{Code: gov.CodeOK}
	events, err1 := h.run(st, btx, apply)
	if err1 != nil {
		h.logger.Info("tx fail", "type", btx.Type, "err", err1)
		res.Code = gov.ErrorCode(err1)
		res.Log = err1.Error()
		return
	}
	res.Events = events
	return
}

// NewTxHandlers returns a handler for every supported transaction type.
func NewTxHandlers(logger cmtlog.Logger, policy gov.TallyPolicy) map[tx.GovTxType]TxHandler {
	return map[tx.GovTxType]TxHandler{
		tx.GovTxTypeProposal: NewProposalTxHandler(logger, policy),
		tx.GovTxTypeComment:  NewCommentTxHandler(logger, policy),
		tx.GovTxTypeAdvance:  NewAdvanceTxHandler(logger, policy),
		tx.GovTxTypeVote:     NewVoteTxHandler(logger, policy),
	}
}

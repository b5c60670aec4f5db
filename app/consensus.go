package app

import (
	"context"
	"errors"

	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrNoPendingState      = errors.New("no finalized state to commit")
)

func (app *GovApp) getState(height int64) (st *state.State) {
	st = app.db.NewState()
	st.SetHeight(uint64(height))
	return
}

// parseTx decodes a transaction and authenticates it against st.
func (app *GovApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.GovTx, err error) {
	btx, err = tx.UnmarshalGovTx(txDat)
	if err != nil {
		return
	}
	sigData, err := btx.SigData([]byte(st.Header().ChainId))
	if err != nil {
		return nil, err
	}
	err = st.Verify(btx.PubKey, btx.Nonce, sigData, btx.Sig, allowNonceGap)
	if err != nil {
		return nil, err
	}
	return
}

func (app *GovApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: gov.CodeOK}
	err = app.db.View(func(st *state.State) error {
		btx, err := app.parseTx(st, check.Tx, true)
		if err != nil {
			app.logger.Error("parse tx fail", "err", err)
			res.Code = gov.CodeInternal
			res.Log = err.Error()
			return nil
		}
		app.logger.Debug("check tx", "type", btx.Type)
		h, ok := app.txHdlrs[btx.Type]
		if !ok {
			app.logger.Error("unsupported tx", "type", btx.Type)
			res.Code = gov.CodeInternal
			res.Log = tx.ErrUnsupportedTxType.Error()
			return nil
		}
		res, err = h.Check(ctx, st, btx)
		return err
	})
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: gov.CodeInternal, Log: err.Error()}
		err = nil
	}
	return
}

// execTx applies one transaction on a copy of st. Governance changes are kept
// only when the transaction succeeds; the sender's nonce is bumped for every
// authenticated transaction so a failed one cannot be replayed later.
func (app *GovApp) execTx(ctx context.Context, st *state.State, stx []byte) (next *state.State, btx *tx.GovTx, result *abcitypes.ExecTxResult, err error) {
	btx, err = app.parseTx(st, stx, false)
	if err != nil {
		return st, nil, nil, err
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return st, btx, nil, tx.ErrUnsupportedTxType
	}
	stTmp := st.Clone()
	result, err = h.Process(ctx, stTmp, btx)
	if err != nil {
		return st, btx, nil, err
	}
	if result == nil {
		return st, btx, nil, ErrUnexpectedTxProcess
	}
	if result.Code != gov.CodeOK {
		stTmp = st.Clone()
	}
	if err = stTmp.IncNonce(btx.PubKey); err != nil {
		return st, btx, nil, err
	}
	return stTmp, btx, result, nil
}

func (app *GovApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.getState(proposal.Height)
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		next, btx, result, err := app.execTx(ctx, st, stx)
		if err != nil {
			app.logger.Error("prepare tx fail", "err", err)
			continue
		}
		if result.Code != gov.CodeOK {
			app.logger.Info("prepare tx rejected", "type", btx.Type, "code", result.Code, "log", result.Log)
			continue
		}
		st = next
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

// ProcessProposal only rejects blocks carrying transactions that cannot be
// decoded or authenticated. Governance failures are recorded when finalizing.
func (app *GovApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.getState(proposal.Height)
	for _, stx := range proposal.Txs {
		next, _, _, err := app.execTx(ctx, st, stx)
		if err != nil {
			app.logger.Error("process tx fail", "err", err)
			return res, nil
		}
		st = next
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *GovApp) finalize(ctx context.Context, st *state.State, txs [][]byte) (*state.State, []*abcitypes.ExecTxResult) {
	res := make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		next, btx, result, err := app.execTx(ctx, st, stx)
		txType := tx.GovTxTypeUnknown
		if btx != nil {
			txType = btx.Type
		}
		if err != nil {
			app.logger.Error("finalize tx fail", "type", txType, "err", err)
			result = &abcitypes.ExecTxResult{Code: gov.ErrorCode(err), Log: err.Error()}
		}
		app.metrics.observeTx(txType.String(), result.Code)
		st = next
		res[i] = result
	}
	return st, res
}

func (app *GovApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState(req.Height)
	st, res := app.finalize(ctx, st, req.Txs)
	h, err := app.db.Update(st)
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	app.metrics.blockHeight.Set(float64(req.Height))
	app.metrics.proposalCount.Set(float64(st.Count()))
	app.metrics.blockTxs.Observe(float64(len(req.Txs)))
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *GovApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}

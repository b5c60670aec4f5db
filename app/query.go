package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	CodeQueryNotFound   = 1
	CodeQueryBadRequest = 2
	CodeQueryNoRoute    = 404
)

func (app *GovApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeQueryNoRoute
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query takes either a 20 byte address or a big endian account index.
func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var a *state.Account
	var height uint64
	if len(req.Data) == 20 {
		a, height, _ = q.db.GetAccountByAddress(req.Data)
	} else if len(req.Data) <= 8 {
		var idx uint64
		for _, v := range req.Data {
			idx <<= 8
			idx |= uint64(v)
		}
		a, height, _ = q.db.GetAccountByIndex(idx)
	}
	if a != nil {
		res.Value, _ = a.MarshalJSON()
		res.Height = int64(height)
	} else {
		res.Code = CodeQueryNotFound
	}
	return
}

type ProposalCountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalCountQuerier(db *state.StateDB, logger cmtlog.Logger) *ProposalCountQuerier {
	return &ProposalCountQuerier{db: db, logger: logger}
}

func (q *ProposalCountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	err = q.db.View(func(st *state.State) error {
		res.Height = int64(st.Height())
		res.Value, err = json.Marshal(st.Count())
		return err
	})
	return
}

type ProposalListQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalListQuerier(db *state.StateDB, logger cmtlog.Logger) *ProposalListQuerier {
	return &ProposalListQuerier{db: db, logger: logger}
}

func (q *ProposalListQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	err = q.db.View(func(st *state.State) error {
		ids, err := st.IDs()
		if err != nil {
			return err
		}
		res.Height = int64(st.Height())
		res.Value, err = json.Marshal(ids)
		return err
	})
	if err != nil {
		q.logger.Error("query proposals fail", "err", err)
	}
	return
}

type ProposalQuerier struct {
	db     *state.StateDB
	policy gov.TallyPolicy
	logger cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, policy gov.TallyPolicy, logger cmtlog.Logger) *ProposalQuerier {
	return &ProposalQuerier{db: db, policy: policy, logger: logger}
}

func (q *ProposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.HashLength {
		res.Code = CodeQueryBadRequest
		res.Log = "proposal id must be 32 bytes"
		return
	}
	err = q.db.View(func(st *state.State) error {
		k := gov.NewKeeper(st, gov.NewEventRecorder(), q.logger, gov.WithTallyPolicy(q.policy))
		rec, err := k.Proposal(common.BytesToHash(req.Data))
		if err != nil {
			res.Code = gov.ErrorCode(err)
			res.Log = err.Error()
			return nil
		}
		res.Height = int64(st.Height())
		res.Value, err = rec.Marshal()
		return err
	})
	return
}

type TallyQuerier struct {
	db     *state.StateDB
	policy gov.TallyPolicy
	logger cmtlog.Logger
}

func NewTallyQuerier(db *state.StateDB, policy gov.TallyPolicy, logger cmtlog.Logger) *TallyQuerier {
	return &TallyQuerier{db: db, policy: policy, logger: logger}
}

// TallyResult is the JSON answer of the /tally/ query.
type TallyResult struct {
	types.Tally
	Voters uint64 `json:"voters"`
}

func (q *TallyQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.HashLength {
		res.Code = CodeQueryBadRequest
		res.Log = "proposal id must be 32 bytes"
		return
	}
	err = q.db.View(func(st *state.State) error {
		k := gov.NewKeeper(st, gov.NewEventRecorder(), q.logger, gov.WithTallyPolicy(q.policy))
		t, err := k.Tally(common.BytesToHash(req.Data))
		if err != nil {
			res.Code = gov.ErrorCode(err)
			res.Log = err.Error()
			return nil
		}
		res.Height = int64(st.Height())
		res.Value, err = json.Marshal(TallyResult{Tally: t, Voters: t.Voters()})
		return err
	})
	return
}

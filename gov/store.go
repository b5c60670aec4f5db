package gov

import (
	"bytes"
	"sort"

	"github.com/calehh/gov-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// Store is the authoritative map of proposal id to record plus the proposal
// counter. Get returns a copy; changes are persisted through Replace.
type Store interface {
	// Create inserts rec with stage PreVoting, stamps its index and bumps the
	// proposal count. It fails with ErrAlreadyExists if the id is taken.
	Create(rec *types.ProposalRecord) (*types.ProposalRecord, error)
	// Get fails with ErrNotFound if id is absent.
	Get(id common.Hash) (*types.ProposalRecord, error)
	// Replace fails with ErrNotFound if rec.ID is absent.
	Replace(rec *types.ProposalRecord) error
	Count() uint64
	// IDs lists every proposal id in creation order.
	IDs() ([]common.Hash, error)
}

// BallotStore keeps one ballot per voter and proposal.
type BallotStore interface {
	PutBallot(id common.Hash, ballot types.Ballot) error
	// Ballots returns the ballots of a proposal ordered by voter address.
	Ballots(id common.Hash) ([]types.Ballot, error)
}

type StateStore interface {
	Store
	BallotStore
}

var _ StateStore = &MemStore{}

// MemStore is an in-memory StateStore.
type MemStore struct {
	records map[common.Hash]*types.ProposalRecord
	ids     []common.Hash
	ballots map[common.Hash]map[string]types.Ballot
}

func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[common.Hash]*types.ProposalRecord),
		ids:     make([]common.Hash, 0),
		ballots: make(map[common.Hash]map[string]types.Ballot),
	}
}

func (m *MemStore) Create(rec *types.ProposalRecord) (*types.ProposalRecord, error) {
	if _, ok := m.records[rec.ID]; ok {
		return nil, ErrAlreadyExists
	}
	n := rec.Clone()
	n.Stage = types.StagePreVoting
	n.Index = uint64(len(m.ids)) + 1
	m.records[n.ID] = n
	m.ids = append(m.ids, n.ID)
	return n.Clone(), nil
}

func (m *MemStore) Get(id common.Hash) (*types.ProposalRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemStore) Replace(rec *types.ProposalRecord) error {
	if _, ok := m.records[rec.ID]; !ok {
		return ErrNotFound
	}
	m.records[rec.ID] = rec.Clone()
	return nil
}

func (m *MemStore) Count() uint64 {
	return uint64(len(m.ids))
}

func (m *MemStore) IDs() ([]common.Hash, error) {
	ids := make([]common.Hash, len(m.ids))
	copy(ids, m.ids)
	return ids, nil
}

func (m *MemStore) PutBallot(id common.Hash, ballot types.Ballot) error {
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	bs, ok := m.ballots[id]
	if !ok {
		bs = make(map[string]types.Ballot)
		m.ballots[id] = bs
	}
	bs[string(ballot.Voter)] = types.Ballot{Voter: bytes.Clone(ballot.Voter), Choice: ballot.Choice}
	return nil
}

func (m *MemStore) Ballots(id common.Hash) ([]types.Ballot, error) {
	bs := m.ballots[id]
	res := make([]types.Ballot, 0, len(bs))
	for _, b := range bs {
		res = append(res, b)
	}
	SortBallots(res)
	return res, nil
}

// SortBallots orders ballots by voter address.
func SortBallots(ballots []types.Ballot) {
	sort.Slice(ballots, func(i, j int) bool {
		return bytes.Compare(ballots[i].Voter, ballots[j].Voter) < 0
	})
}

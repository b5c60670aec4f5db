package state

import (
	"fmt"
	"sort"

	"github.com/calehh/gov-app/gov"
	gov_types "github.com/calehh/gov-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

func (s *State) proposal(id common.Hash) (*gov_types.ProposalRecord, error) {
	if rec, ok := s.proposals[id]; ok {
		return rec, nil
	}
	val, err := s.get([]byte(fmt.Sprintf(KeyProposalBody, id[:])))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, gov.ErrNotFound
	}
	rec, err := gov_types.UnmarshalProposalRecord(val)
	if err != nil {
		return nil, err
	}
	s.proposals[id] = rec
	return rec, nil
}

func (s *State) Create(rec *gov_types.ProposalRecord) (*gov_types.ProposalRecord, error) {
	_, err := s.proposal(rec.ID)
	if err == nil {
		return nil, gov.ErrAlreadyExists
	}
	if err != gov.ErrNotFound {
		return nil, err
	}
	n := rec.Clone()
	n.Stage = gov_types.StagePreVoting
	n.Index = s.header.ProposalCount + 1
	n.Height = s.header.Height
	s.header.ProposalCount += 1
	s.proposals[n.ID] = n
	s.modifiedProposals[n.ID] = ModifiedFlagNew
	return n.Clone(), nil
}

func (s *State) Get(id common.Hash) (*gov_types.ProposalRecord, error) {
	rec, err := s.proposal(id)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (s *State) Replace(rec *gov_types.ProposalRecord) error {
	if _, err := s.proposal(rec.ID); err != nil {
		return err
	}
	s.proposals[rec.ID] = rec.Clone()
	s.modifiedProposals[rec.ID] |= ModifiedFlagMod
	return nil
}

func (s *State) Count() uint64 {
	return s.header.ProposalCount
}

// IDs walks the order index of the tree, then appends the proposals created
// in this block.
func (s *State) IDs() ([]common.Hash, error) {
	ids := make([]common.Hash, 0, s.header.ProposalCount)
	start := []byte(fmt.Sprintf(KeyProposalOrder, 0))
	end := PrefixEndBytes([]byte("o"))
	it, err := s.reader.Iterator(start, end, true)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		ids = append(ids, common.BytesToHash(it.Value()))
	}
	if err = it.Error(); err != nil {
		return nil, err
	}

	pending := s.newProposals()
	for _, rec := range pending {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func (s *State) newProposals() []*gov_types.ProposalRecord {
	res := make([]*gov_types.ProposalRecord, 0)
	for id, flag := range s.modifiedProposals {
		if flag&ModifiedFlagNew == ModifiedFlagNew {
			res = append(res, s.proposals[id])
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Index < res[j].Index
	})
	return res
}

func (s *State) PutBallot(id common.Hash, ballot gov_types.Ballot) error {
	if _, err := s.proposal(id); err != nil {
		return err
	}
	bs, ok := s.ballots[id]
	if !ok {
		bs = make(map[string]gov_types.Ballot)
		s.ballots[id] = bs
	}
	bs[string(ballot.Voter)] = gov_types.Ballot{Voter: append([]byte(nil), ballot.Voter...), Choice: ballot.Choice}
	return nil
}

func (s *State) Ballots(id common.Hash) ([]gov_types.Ballot, error) {
	merged := make(map[string]gov_types.Ballot)
	prefix := []byte(fmt.Sprintf("b%x", id[:]))
	it, err := s.reader.Iterator(prefix, PrefixEndBytes(prefix), true)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		var b gov_types.Ballot
		if err = rlp.DecodeBytes(it.Value(), &b); err != nil {
			return nil, err
		}
		merged[string(b.Voter)] = b
	}
	if err = it.Error(); err != nil {
		return nil, err
	}
	for k, b := range s.ballots[id] {
		merged[k] = b
	}

	res := make([]gov_types.Ballot, 0, len(merged))
	for _, b := range merged {
		res = append(res, b)
	}
	gov.SortBallots(res)
	return res, nil
}

func (s *State) updateProposals() (err error) {
	ids := make([]common.Hash, 0, len(s.modifiedProposals))
	for id := range s.modifiedProposals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.proposals[ids[i]].Index < s.proposals[ids[j]].Index
	})
	for _, id := range ids {
		rec := s.proposals[id]
		val, err := rec.Marshal()
		if err != nil {
			return err
		}
		if _, err = s.db.Set([]byte(fmt.Sprintf(KeyProposalBody, id[:])), val); err != nil {
			return err
		}
		if s.modifiedProposals[id]&ModifiedFlagNew == ModifiedFlagNew {
			key := fmt.Sprintf(KeyProposalOrder, rec.Index)
			if _, err = s.db.Set([]byte(key), id.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *State) updateBallots() (err error) {
	ids := make([]common.Hash, 0, len(s.ballots))
	for id := range s.ballots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Cmp(ids[j]) < 0
	})
	for _, id := range ids {
		bs := make([]gov_types.Ballot, 0, len(s.ballots[id]))
		for _, b := range s.ballots[id] {
			bs = append(bs, b)
		}
		gov.SortBallots(bs)
		for _, b := range bs {
			val, err := rlp.EncodeToBytes(&b)
			if err != nil {
				return err
			}
			key := fmt.Sprintf(KeyBallot, id[:], []byte(b.Voter))
			if _, err = s.db.Set([]byte(key), val); err != nil {
				return err
			}
		}
	}
	return nil
}

package gov

import (
	"errors"
	"fmt"

	"github.com/calehh/gov-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// TallyPolicy turns the ballots of a proposal into an outcome.
type TallyPolicy interface {
	Name() string
	Tally(id common.Hash, ballots []types.Ballot) types.Tally
}

// MajorityPolicy counts one ballot per distinct voter. A proposal passes when
// yes ballots strictly outnumber no ballots; ties and zero turnout reject.
type MajorityPolicy struct{}

func (MajorityPolicy) Name() string { return "majority" }

func (MajorityPolicy) Tally(id common.Hash, ballots []types.Ballot) types.Tally {
	t := types.Tally{Proposal: id}
	for _, b := range ballots {
		if b.Choice {
			t.Yes++
		} else {
			t.No++
		}
	}
	if t.Yes > t.No {
		t.Outcome = types.OutcomePassed
	} else {
		t.Outcome = types.OutcomeRejected
	}
	return t
}

// SupermajorityPolicy passes when at least Numerator/Denominator of the
// distinct voters chose yes and Quorum voters took part.
type SupermajorityPolicy struct {
	Numerator   uint64
	Denominator uint64
	Quorum      uint64
}

func (p SupermajorityPolicy) Name() string {
	return fmt.Sprintf("supermajority(%d/%d,quorum=%d)", p.Numerator, p.Denominator, p.Quorum)
}

func (p SupermajorityPolicy) Tally(id common.Hash, ballots []types.Ballot) types.Tally {
	t := MajorityPolicy{}.Tally(id, ballots)
	t.Outcome = types.OutcomeRejected
	voters := t.Voters()
	if voters == 0 || voters < p.Quorum || p.Denominator == 0 {
		return t
	}
	if t.Yes*p.Denominator >= voters*p.Numerator {
		t.Outcome = types.OutcomePassed
	}
	return t
}

// PolicyByName resolves the tally policy configured for a node.
func PolicyByName(name string) (TallyPolicy, error) {
	switch name {
	case "", "majority":
		return MajorityPolicy{}, nil
	case "supermajority":
		return SupermajorityPolicy{Numerator: 2, Denominator: 3}, nil
	}
	return nil, fmt.Errorf("unknown tally policy %q", name)
}

// CurrentTally reports the running count of a proposal's ballots. The outcome
// stays pending until the proposal completes.
func CurrentTally(store StateStore, policy TallyPolicy, id common.Hash) (types.Tally, error) {
	rec, err := store.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.Tally{}, ErrProposalNotFound
		}
		return types.Tally{}, err
	}
	ballots, err := store.Ballots(id)
	if err != nil {
		return types.Tally{}, err
	}
	t := policy.Tally(id, ballots)
	if rec.Stage != types.StageCompleted {
		t.Outcome = types.OutcomePending
	} else {
		t.Outcome = rec.Outcome
	}
	return t, nil
}

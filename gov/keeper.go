package gov

import (
	"errors"
	"fmt"

	"github.com/calehh/gov-app/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

// Keeper applies governance operations to a store. Callers are trusted to be
// authenticated already, and operations must be applied one at a time: a
// Keeper holds no locks. Every operation runs all of its checks before the
// first write, so a failed call leaves the store untouched and emits nothing.
type Keeper struct {
	logger  cmtlog.Logger
	store   StateStore
	emitter Emitter
	policy  TallyPolicy
}

type KeeperOption func(k *Keeper)

func WithTallyPolicy(p TallyPolicy) KeeperOption {
	return func(k *Keeper) {
		k.policy = p
	}
}

func NewKeeper(store StateStore, emitter Emitter, logger cmtlog.Logger, opts ...KeeperOption) *Keeper {
	k := &Keeper{
		logger:  logger.With("module", types.ModuleName),
		store:   store,
		emitter: emitter,
		policy:  MajorityPolicy{},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Keeper) Store() StateStore {
	return k.store
}

func (k *Keeper) Policy() TallyPolicy {
	return k.policy
}

// CreateProposal stores a new proposal in PreVoting and returns its id.
func (k *Keeper) CreateProposal(caller cmtcrypto.Address, title, contents []byte, category types.ProposalCategory) (id common.Hash, err error) {
	id = ProposalHash(caller, contents)
	k.logger.Debug("apply proposal", "author", caller, "proposal", id)
	if err = ValidateCreation(title, contents, id, k.store); err != nil {
		return common.Hash{}, err
	}
	if err = category.Validate(); err != nil {
		return common.Hash{}, err
	}
	rec, err := k.store.Create(&types.ProposalRecord{
		ID:       id,
		Author:   caller,
		Stage:    types.StagePreVoting,
		Category: category,
		Title:    title,
		Contents: contents,
		Comments: []types.Comment{},
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return common.Hash{}, ErrDuplicateProposal
		}
		return common.Hash{}, fmt.Errorf("create proposal: %w", err)
	}
	k.emitter.Emit(&types.EventNewProposal{Author: caller, Proposal: rec.ID})
	return rec.ID, nil
}

// AddComment appends (text, caller) to the proposal's comment thread. Empty
// comments are allowed.
func (k *Keeper) AddComment(caller cmtcrypto.Address, id common.Hash, text []byte) error {
	k.logger.Debug("apply comment", "author", caller, "proposal", id)
	rec, err := k.get(id)
	if err != nil {
		return err
	}
	rec.Comments = append(rec.Comments, types.Comment{Text: text, Author: caller})
	if err = k.store.Replace(rec); err != nil {
		return fmt.Errorf("replace proposal: %w", err)
	}
	k.emitter.Emit(&types.EventNewComment{Author: caller, Proposal: id})
	return nil
}

// AdvanceProposal moves the proposal to its next stage. Only the author may
// advance. Completing a proposal fixes its outcome from the ballots cast.
func (k *Keeper) AdvanceProposal(caller cmtcrypto.Address, id common.Hash) error {
	k.logger.Debug("apply advance", "caller", caller, "proposal", id)
	rec, err := k.get(id)
	if err != nil {
		return err
	}
	if !rec.IsAuthor(caller) {
		return ErrUnauthorized
	}
	next, ok := rec.Stage.Next()
	if !ok {
		return ErrAlreadyCompleted
	}
	var ev types.Event
	switch next {
	case types.StageVoting:
		ev = &types.EventVotingStarted{Proposal: id}
	case types.StageCompleted:
		ballots, err := k.store.Ballots(id)
		if err != nil {
			return fmt.Errorf("load ballots: %w", err)
		}
		tally := k.policy.Tally(id, ballots)
		rec.Outcome = tally.Outcome
		k.logger.Info("voting completed", "proposal", id, "yes", tally.Yes, "no", tally.No, "outcome", tally.Outcome)
		ev = &types.EventVotingCompleted{Proposal: id, Outcome: tally.Outcome}
	}
	rec.Stage = next
	if err = k.store.Replace(rec); err != nil {
		return fmt.Errorf("replace proposal: %w", err)
	}
	k.emitter.Emit(ev)
	return nil
}

// SubmitVote records the caller's ballot while the proposal is in Voting. A
// later ballot from the same voter replaces the earlier one.
func (k *Keeper) SubmitVote(caller cmtcrypto.Address, id common.Hash, choice bool) error {
	k.logger.Debug("apply vote", "voter", caller, "proposal", id, "choice", choice)
	rec, err := k.get(id)
	if err != nil {
		return err
	}
	if rec.Stage != types.StageVoting {
		return ErrNotInVotingStage
	}
	if err = k.store.PutBallot(id, types.Ballot{Voter: caller, Choice: choice}); err != nil {
		return fmt.Errorf("put ballot: %w", err)
	}
	k.emitter.Emit(&types.EventVote{Voter: caller, Proposal: id, Choice: choice})
	return nil
}

// Proposal looks up a record by id.
func (k *Keeper) Proposal(id common.Hash) (*types.ProposalRecord, error) {
	return k.get(id)
}

// Tally reports the current count for a proposal.
func (k *Keeper) Tally(id common.Hash) (types.Tally, error) {
	return CurrentTally(k.store, k.policy, id)
}

func (k *Keeper) get(id common.Hash) (*types.ProposalRecord, error) {
	rec, err := k.store.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return rec, nil
}

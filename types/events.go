package types

import (
	"encoding/hex"
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventNewProposalType     = "new_proposal"
	EventNewCommentType      = "new_comment"
	EventVotingStartedType   = "voting_started"
	EventVotingCompletedType = "voting_completed"
	EventVoteType            = "vote"
)

// Event is a governance state change that is published on the chain's event bus.
type Event interface {
	Type() string
}

type EventNewProposal struct {
	Author   cmtcrypto.Address `json:"author"`
	Proposal common.Hash       `json:"proposal"`
}

func (e *EventNewProposal) Type() string { return EventNewProposalType }

type EventNewComment struct {
	Author   cmtcrypto.Address `json:"author"`
	Proposal common.Hash       `json:"proposal"`
}

func (e *EventNewComment) Type() string { return EventNewCommentType }

type EventVotingStarted struct {
	Proposal common.Hash `json:"proposal"`
}

func (e *EventVotingStarted) Type() string { return EventVotingStartedType }

type EventVotingCompleted struct {
	Proposal common.Hash     `json:"proposal"`
	Outcome  ProposalOutcome `json:"outcome"`
}

func (e *EventVotingCompleted) Type() string { return EventVotingCompletedType }

type EventVote struct {
	Voter    cmtcrypto.Address `json:"voter"`
	Proposal common.Hash       `json:"proposal"`
	Choice   bool              `json:"choice"`
}

func (e *EventVote) Type() string { return EventVoteType }

// EncodeEvent converts a governance event into its ABCI form.
func EncodeEvent(ev Event) abci.Event {
	switch e := ev.(type) {
	case *EventNewProposal:
		return EncodeEventNewProposal(e)
	case *EventNewComment:
		return EncodeEventNewComment(e)
	case *EventVotingStarted:
		return EncodeEventVotingStarted(e)
	case *EventVotingCompleted:
		return EncodeEventVotingCompleted(e)
	case *EventVote:
		return EncodeEventVote(e)
	}
	panic(fmt.Sprintf("unknown governance event %T", ev))
}

func EncodeEventNewProposal(event *EventNewProposal) abci.Event {
	return abci.Event{
		Type: EventNewProposalType,
		Attributes: []abci.EventAttribute{
			{Key: "author", Value: event.Author.String(), Index: true},
			{Key: "proposal", Value: event.Proposal.Hex(), Index: true},
		},
	}
}

func DecodeEventNewProposal(originEvent abci.Event) *EventNewProposal {
	event := &EventNewProposal{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "author":
			addr, err := decodeAddress(v.Value)
			if err != nil {
				return nil
			}
			event.Author = addr
		case "proposal":
			id, err := decodeHash(v.Value)
			if err != nil {
				return nil
			}
			event.Proposal = id
		}
	}
	return event
}

func EncodeEventNewComment(event *EventNewComment) abci.Event {
	return abci.Event{
		Type: EventNewCommentType,
		Attributes: []abci.EventAttribute{
			{Key: "author", Value: event.Author.String(), Index: true},
			{Key: "proposal", Value: event.Proposal.Hex(), Index: true},
		},
	}
}

func DecodeEventNewComment(originEvent abci.Event) *EventNewComment {
	event := &EventNewComment{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "author":
			addr, err := decodeAddress(v.Value)
			if err != nil {
				return nil
			}
			event.Author = addr
		case "proposal":
			id, err := decodeHash(v.Value)
			if err != nil {
				return nil
			}
			event.Proposal = id
		}
	}
	return event
}

func EncodeEventVotingStarted(event *EventVotingStarted) abci.Event {
	return abci.Event{
		Type: EventVotingStartedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: event.Proposal.Hex(), Index: true},
		},
	}
}

func DecodeEventVotingStarted(originEvent abci.Event) *EventVotingStarted {
	event := &EventVotingStarted{}
	for _, v := range originEvent.Attributes {
		if v.Key == "proposal" {
			id, err := decodeHash(v.Value)
			if err != nil {
				return nil
			}
			event.Proposal = id
		}
	}
	return event
}

func EncodeEventVotingCompleted(event *EventVotingCompleted) abci.Event {
	return abci.Event{
		Type: EventVotingCompletedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: event.Proposal.Hex(), Index: true},
			{Key: "outcome", Value: fmt.Sprintf("%v", uint8(event.Outcome)), Index: false},
		},
	}
}

func DecodeEventVotingCompleted(originEvent abci.Event) *EventVotingCompleted {
	event := &EventVotingCompleted{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			id, err := decodeHash(v.Value)
			if err != nil {
				return nil
			}
			event.Proposal = id
		case "outcome":
			outcome, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.Outcome = ProposalOutcome(outcome)
		}
	}
	return event
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "voter", Value: event.Voter.String(), Index: true},
			{Key: "proposal", Value: event.Proposal.Hex(), Index: true},
			{Key: "choice", Value: strconv.FormatBool(event.Choice), Index: false},
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "voter":
			addr, err := decodeAddress(v.Value)
			if err != nil {
				return nil
			}
			event.Voter = addr
		case "proposal":
			id, err := decodeHash(v.Value)
			if err != nil {
				return nil
			}
			event.Proposal = id
		case "choice":
			choice, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Choice = choice
		}
	}
	return event
}

func decodeAddress(s string) (cmtcrypto.Address, error) {
	dat, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return cmtcrypto.Address(dat), nil
}

func decodeHash(s string) (common.Hash, error) {
	dat, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return common.Hash{}, err
	}
	if len(dat) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length %d", len(dat))
	}
	return common.BytesToHash(dat), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// ParseProposalID parses a hex encoded proposal id, with or without 0x prefix.
func ParseProposalID(s string) (common.Hash, error) {
	return decodeHash(s)
}

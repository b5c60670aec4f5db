package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/ethereum/go-ethereum/common"
)

// ProposalStage is the position of a proposal in its lifecycle.
// Stages only move forward: PreVoting -> Voting -> Completed.
type ProposalStage uint8

const (
	StagePreVoting ProposalStage = 0
	StageVoting    ProposalStage = 1
	StageCompleted ProposalStage = 2
)

func (s ProposalStage) String() string {
	switch s {
	case StagePreVoting:
		return "PreVoting"
	case StageVoting:
		return "Voting"
	case StageCompleted:
		return "Completed"
	}
	return fmt.Sprintf("ProposalStage(%d)", uint8(s))
}

// Next returns the stage that follows s. ok is false for Completed.
func (s ProposalStage) Next() (next ProposalStage, ok bool) {
	switch s {
	case StagePreVoting:
		return StageVoting, true
	case StageVoting:
		return StageCompleted, true
	}
	return s, false
}

type CategoryKind uint8

const (
	CategoryReferendum    CategoryKind = 0
	CategoryFunding       CategoryKind = 1
	CategoryNetworkChange CategoryKind = 2
	CategorySignaling     CategoryKind = 3
	CategoryUpgrade       CategoryKind = 4
)

var categoryNames = map[CategoryKind]string{
	CategoryReferendum:    "referendum",
	CategoryFunding:       "funding",
	CategoryNetworkChange: "network_change",
	CategorySignaling:     "signaling",
	CategoryUpgrade:       "upgrade",
}

func (k CategoryKind) String() string {
	if name, ok := categoryNames[k]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", uint8(k))
}

// ProposalCategory classifies a proposal. Amount is only meaningful for funding requests.
type ProposalCategory struct {
	Kind   CategoryKind `json:"kind"`
	Amount uint64       `json:"amount,omitempty"`
}

func FundingCategory(amount uint64) ProposalCategory {
	return ProposalCategory{Kind: CategoryFunding, Amount: amount}
}

func (c ProposalCategory) String() string {
	if c.Kind == CategoryFunding {
		return fmt.Sprintf("%v(%d)", c.Kind, c.Amount)
	}
	return c.Kind.String()
}

func (c ProposalCategory) Validate() error {
	if _, ok := categoryNames[c.Kind]; !ok {
		return fmt.Errorf("unknown proposal category %d", c.Kind)
	}
	if c.Kind != CategoryFunding && c.Amount != 0 {
		return fmt.Errorf("amount is only allowed for funding proposals")
	}
	return nil
}

// ParseCategory resolves a category name as printed by CategoryKind.String.
func ParseCategory(name string, amount uint64) (ProposalCategory, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, v := range categoryNames {
		if v == name {
			c := ProposalCategory{Kind: k}
			if k == CategoryFunding {
				c.Amount = amount
			}
			return c, nil
		}
	}
	return ProposalCategory{}, fmt.Errorf("unknown proposal category %q", name)
}

type ProposalOutcome uint8

const (
	OutcomePending  ProposalOutcome = 0
	OutcomePassed   ProposalOutcome = 1
	OutcomeRejected ProposalOutcome = 2
)

func (o ProposalOutcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomePassed:
		return "passed"
	case OutcomeRejected:
		return "rejected"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

type Comment struct {
	Text   []byte            `json:"text"`
	Author cmtcrypto.Address `json:"author"`
}

type ProposalRecord struct {
	ID       common.Hash       `json:"id"`
	Index    uint64            `json:"index"`
	Author   cmtcrypto.Address `json:"author"`
	Stage    ProposalStage     `json:"stage"`
	Category ProposalCategory  `json:"category"`
	Title    []byte            `json:"title"`
	Contents []byte            `json:"contents"`
	Comments []Comment         `json:"comments"`
	Height   uint64            `json:"height"`
	Outcome  ProposalOutcome   `json:"outcome"`
}

func (r *ProposalRecord) IsAuthor(addr cmtcrypto.Address) bool {
	return bytes.Equal(r.Author, addr)
}

func (r *ProposalRecord) Clone() *ProposalRecord {
	n := *r
	n.Author = cloneBytes(r.Author)
	n.Title = cloneBytes(r.Title)
	n.Contents = cloneBytes(r.Contents)
	n.Comments = make([]Comment, len(r.Comments))
	for i, c := range r.Comments {
		n.Comments[i] = Comment{Text: cloneBytes(c.Text), Author: cloneBytes(c.Author)}
	}
	return &n
}

func (r *ProposalRecord) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalProposalRecord(dat []byte) (*ProposalRecord, error) {
	r := new(ProposalRecord)
	if err := json.Unmarshal(dat, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Ballot is the latest choice of one voter on one proposal.
type Ballot struct {
	Voter  cmtcrypto.Address `json:"voter"`
	Choice bool              `json:"choice"`
}

// Tally is the aggregated view of the ballots cast on a proposal.
type Tally struct {
	Proposal common.Hash     `json:"proposal"`
	Yes      uint64          `json:"yes"`
	No       uint64          `json:"no"`
	Outcome  ProposalOutcome `json:"outcome"`
}

func (t Tally) Voters() uint64 {
	return t.Yes + t.No
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	n := make([]byte, len(b))
	copy(n, b)
	return n
}

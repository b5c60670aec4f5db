package tx

import (
	"errors"
)

type GovTxType uint8

const (
	GovTxTypeUnknown  GovTxType = 0
	GovTxTypeProposal GovTxType = 1
	GovTxTypeComment  GovTxType = 2
	GovTxTypeAdvance  GovTxType = 3
	GovTxTypeVote     GovTxType = 4
)

func (t GovTxType) String() string {
	switch t {
	case GovTxTypeProposal:
		return "proposal"
	case GovTxTypeComment:
		return "comment"
	case GovTxTypeAdvance:
		return "advance"
	case GovTxTypeVote:
		return "vote"
	}
	return "unknown"
}

const (
	GovTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrMissingSignature     = errors.New("missing signature")
)

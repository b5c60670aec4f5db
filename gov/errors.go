package gov

import "errors"

var (
	ErrEmptyTitle        = errors.New("proposal must have title")
	ErrEmptyContent      = errors.New("proposal must not be empty")
	ErrDuplicateProposal = errors.New("proposal already exists")
	ErrProposalNotFound  = errors.New("proposal does not exist")
	ErrUnauthorized      = errors.New("proposal must be advanced by author")
	ErrAlreadyCompleted  = errors.New("proposal already completed")
	ErrNotInVotingStage  = errors.New("proposal not in voting stage")
)

// store level errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ABCI result codes for governance failures. Zero is success and 1 is reserved
// for errors outside the governance core (decoding, signatures, storage).
const (
	CodeOK                uint32 = 0
	CodeInternal          uint32 = 1
	CodeEmptyTitle        uint32 = 10
	CodeEmptyContent      uint32 = 11
	CodeDuplicateProposal uint32 = 12
	CodeProposalNotFound  uint32 = 13
	CodeUnauthorized      uint32 = 14
	CodeAlreadyCompleted  uint32 = 15
	CodeNotInVotingStage  uint32 = 16
)

var errorCodes = []struct {
	err  error
	code uint32
}{
	{ErrEmptyTitle, CodeEmptyTitle},
	{ErrEmptyContent, CodeEmptyContent},
	{ErrDuplicateProposal, CodeDuplicateProposal},
	{ErrProposalNotFound, CodeProposalNotFound},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrAlreadyCompleted, CodeAlreadyCompleted},
	{ErrNotInVotingStage, CodeNotInVotingStage},
}

// ErrorCode maps err onto the ABCI result code reported to clients.
func ErrorCode(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, v := range errorCodes {
		if errors.Is(err, v.err) {
			return v.code
		}
	}
	return CodeInternal
}

package gov

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateCreation checks a proposal before anything is written. It never
// mutates the store.
func ValidateCreation(title, contents []byte, id common.Hash, store Store) error {
	if len(title) == 0 {
		return ErrEmptyTitle
	}
	if len(contents) == 0 {
		return ErrEmptyContent
	}
	_, err := store.Get(id)
	switch {
	case err == nil:
		return ErrDuplicateProposal
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

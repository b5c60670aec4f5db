package gov

import (
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// ProposalHash derives the proposal id from the author and the raw proposal
// contents: blake2b-256(author || contents). Title and category are not part
// of the preimage, so resubmitting the same contents under a new title is
// still a duplicate. Addresses are fixed width, so plain concatenation is
// unambiguous.
func ProposalHash(author cmtcrypto.Address, contents []byte) common.Hash {
	buf := make([]byte, 0, len(author)+len(contents))
	buf = append(buf, author...)
	buf = append(buf, contents...)
	return common.Hash(blake2b.Sum256(buf))
}

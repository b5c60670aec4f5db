package state

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"
)

// StateHeader is stored under KeyState and summarizes the tree: the next free
// account index, the proposal counter and the hashes of the last commit.
type StateHeader struct {
	Height        uint64
	ChainId       string
	AccountIdx    uint64
	ProposalCount uint64
	RootHash      []byte
	Hash          []byte
}

func (h *StateHeader) GetHash() []byte {
	if h == nil {
		return nil
	}
	return h.Hash
}

func (h *StateHeader) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

func (h *StateHeader) Unmarshal(dat []byte) error {
	return rlp.DecodeBytes(dat, h)
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = bytes.Clone(h.RootHash)
	n.Hash = bytes.Clone(h.Hash)
	return &n
}

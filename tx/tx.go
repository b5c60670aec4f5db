package tx

import (
	"encoding/json"
	"fmt"

	gov_types "github.com/calehh/gov-app/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

// GovTx is the signed envelope of every transaction. Sig holds one ed25519
// signature over SigData by the key in PubKey.
type GovTx struct {
	Version uint8     `json:"version"`
	Type    GovTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	PubKey  []byte    `json:"pubKey"`
	Tx      any       `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

type ProposalTx struct {
	Title    []byte                     `json:"title"`
	Contents []byte                     `json:"contents"`
	Category gov_types.ProposalCategory `json:"category"`
}

type CommentTx struct {
	Proposal common.Hash `json:"proposal"`
	Text     []byte      `json:"text"`
}

type AdvanceTx struct {
	Proposal common.Hash `json:"proposal"`
}

type VoteTx struct {
	Proposal common.Hash `json:"proposal"`
	Choice   bool        `json:"choice"`
}

type govTxTmpl[Tx any] struct {
	Version uint8     `json:"version"`
	Type    GovTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	PubKey  []byte    `json:"pubKey"`
	Tx      Tx        `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

// SigData is the message signed by the sender. ext binds the signature to a
// chain, callers pass the chain id.
func (tx *GovTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

// Sender is the address of the signing key.
func (tx *GovTx) Sender() cmtcrypto.Address {
	return ed25519.PubKey(tx.PubKey).Address()
}

// Sign fills PubKey and Sig with key.
func (tx *GovTx) Sign(key cmtcrypto.PrivKey, ext []byte) (err error) {
	tx.PubKey = key.PubKey().Bytes()
	tx.Sig = nil
	dat, err := tx.SigData(ext)
	if err != nil {
		return
	}
	sig, err := key.Sign(dat)
	if err != nil {
		return
	}
	tx.Sig = [][]byte{sig}
	return
}

func parseGovTxType(dat []byte) GovTxType {
	var tx struct {
		Type GovTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return GovTxTypeUnknown
	}
	return tx.Type
}

func unmarshalGovTx[Tx any](dat []byte) (btx *GovTx, err error) {
	var txt govTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	if txt.Version != GovTxVersion0 {
		return nil, ErrUnsupportedTxVersion
	}
	if len(txt.PubKey) == 0 || len(txt.Sig) == 0 {
		return nil, ErrMissingSignature
	}
	btx = new(GovTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.PubKey = txt.PubKey
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalGovTx(dat []byte) (btx *GovTx, err error) {
	tp := parseGovTxType(dat)
	switch tp {
	case GovTxTypeProposal:
		return unmarshalGovTx[ProposalTx](dat)
	case GovTxTypeComment:
		return unmarshalGovTx[CommentTx](dat)
	case GovTxTypeAdvance:
		return unmarshalGovTx[AdvanceTx](dat)
	case GovTxTypeVote:
		return unmarshalGovTx[VoteTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalGovTx(btx *GovTx) (dat []byte, err error) {
	return json.Marshal(btx)
}

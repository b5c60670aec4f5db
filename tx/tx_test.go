package tx

import (
	"testing"

	gov_types "github.com/calehh/gov-app/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChain = []byte("gov-test-chain")

func TestSignedTxRoundTrip(t *testing.T) {
	key := ed25519.GenPrivKeyFromSecret([]byte("alice"))
	btx := &GovTx{
		Version: GovTxVersion0,
		Type:    GovTxTypeProposal,
		Nonce:   3,
		Tx: &ProposalTx{
			Title:    []byte("Make X Free"),
			Contents: []byte("Simple: make X free for everyone"),
			Category: gov_types.FundingCategory(12),
		},
	}
	require.NoError(t, btx.Sign(key, testChain))
	dat, err := MarshalGovTx(btx)
	require.NoError(t, err)

	got, err := UnmarshalGovTx(dat)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Nonce)
	assert.Equal(t, key.PubKey().Address(), got.Sender())
	ptx, ok := got.Tx.(*ProposalTx)
	require.True(t, ok)
	assert.Equal(t, gov_types.FundingCategory(12), ptx.Category)

	sigData, err := got.SigData(testChain)
	require.NoError(t, err)
	require.Len(t, got.Sig, 1)
	assert.True(t, key.PubKey().VerifySignature(sigData, got.Sig[0]))
}

func TestUnmarshalRejectsBadTx(t *testing.T) {
	key := ed25519.GenPrivKeyFromSecret([]byte("alice"))
	signed := func(mod func(btx *GovTx)) []byte {
		btx := &GovTx{Type: GovTxTypeVote, Tx: &VoteTx{Choice: true}}
		require.NoError(t, btx.Sign(key, testChain))
		mod(btx)
		dat, err := MarshalGovTx(btx)
		require.NoError(t, err)
		return dat
	}

	tests := []struct {
		name string
		dat  []byte
		err  error
	}{
		{"unknown type", []byte(`{"type":9}`), ErrUnsupportedTxType},
		{"not json", []byte("garbage"), ErrUnsupportedTxType},
		{"malformed body", []byte(`{"type":1,"tx":"title"}`), ErrInvalidTx},
		{"future version", signed(func(btx *GovTx) { btx.Version = 1 }), ErrUnsupportedTxVersion},
		{"no signature", signed(func(btx *GovTx) { btx.Sig = nil }), ErrMissingSignature},
		{"no public key", signed(func(btx *GovTx) { btx.PubKey = nil }), ErrMissingSignature},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalGovTx(tc.dat)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calehh/gov-app/tx"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/privval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFilePV(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "priv_validator_key.json")
	filePV := privval.GenFilePV(keyFile, filepath.Join(dir, "priv_validator_state.json"))
	filePV.Save()

	pv, err := LoadFilePV(keyFile)
	require.NoError(t, err)
	assert.Equal(t, filePV.Key.PubKey.Bytes(), pv.PublicKey())
	assert.Equal(t, filePV.Key.Address.String(), pv.Address())

	btx := &tx.GovTx{
		Version: tx.GovTxVersion0,
		Type:    tx.GovTxTypeAdvance,
		Nonce:   3,
		Tx:      &tx.AdvanceTx{},
	}
	require.NoError(t, pv.SignTx(btx, "chain-a"))
	require.Len(t, btx.Sig, 1)
	assert.Equal(t, filePV.Key.Address, btx.Sender())

	dat, err := btx.SigData([]byte("chain-a"))
	require.NoError(t, err)
	assert.True(t, filePV.Key.PubKey.VerifySignature(dat, btx.Sig[0]))
	other, err := btx.SigData([]byte("chain-b"))
	require.NoError(t, err)
	assert.False(t, filePV.Key.PubKey.VerifySignature(other, btx.Sig[0]))
}

func TestLoadFilePVErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFilePV(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = LoadFilePV(bad)
	assert.Error(t, err)
}

func TestNewPV(t *testing.T) {
	key := ed25519.GenPrivKeyFromSecret([]byte("alice"))
	pv := NewPV(key)
	sig, err := pv.Sign([]byte("msg"))
	require.NoError(t, err)
	assert.True(t, key.PubKey().VerifySignature([]byte("msg"), sig))
	assert.Equal(t, key.PubKey().Address().String(), pv.Address())
}

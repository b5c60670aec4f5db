package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calehh/gov-app/config"
	"github.com/calehh/gov-app/crypto"
	"github.com/calehh/gov-app/types"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRun(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, initCmd.Flags().Set(FlagHome, home))
	require.NoError(t, initCmd.Flags().Set(FlagChainID, "gov-local"))
	require.NoError(t, initCmd.Flags().Set(FlagMoniker, "alice"))
	require.NoError(t, initRun(initCmd, nil))

	cfg, err := config.LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Moniker)
	assert.Equal(t, home, cfg.App.Home)
	assert.True(t, cfg.App.Indexer.Enabled)

	dat, err := os.ReadFile(cfg.GenesisFile())
	require.NoError(t, err)
	var genDoc types.GenesisDoc
	require.NoError(t, cmtjson.Unmarshal(dat, &genDoc))
	assert.Equal(t, "gov-local", genDoc.ChainID)
	require.Len(t, genDoc.Validators, 1)

	pv, err := crypto.LoadFilePV(cfg.PrivValidatorKeyFile())
	require.NoError(t, err)
	assert.Equal(t, genDoc.Validators[0].Address.String(), pv.Address())

	// a second init keeps the existing genesis
	assert.Error(t, initRun(initCmd, nil))
	require.NoError(t, initCmd.Flags().Set(FlagOverwrite, "true"))
	require.NoError(t, initRun(initCmd, nil))
	_, err = os.Stat(filepath.Join(home, "config", "node_key.json"))
	assert.NoError(t, err)
}

func TestParseChoice(t *testing.T) {
	for in, want := range map[string]bool{"yes": true, "Y": true, "true": true, "no": false, "n": false, "0": false} {
		got, err := parseChoice(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseChoice("maybe")
	assert.Error(t, err)
}

func TestVersionWithCommit(t *testing.T) {
	assert.Equal(t, Version, VersionWithCommit("abc"))
	assert.Equal(t, Version+"-0123abcd", VersionWithCommit("0123abcdef"))
}

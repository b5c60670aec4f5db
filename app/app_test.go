package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/calehh/gov-app/config"
	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/tx"
	"github.com/calehh/gov-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainID = "gov-test-chain"

type testChain struct {
	t      *testing.T
	app    *GovApp
	reg    *prometheus.Registry
	height int64
	nonces map[string]uint64
}

func newTestChain(t *testing.T) *testChain {
	t.Helper()
	cfg := config.DefaultAppConfig(t.TempDir())
	cfg.DBBackend = "memdb"
	reg := prometheus.NewRegistry()
	cfg.PromRegistry = reg
	app, err := NewGovApp(cfg, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(app.Stop)

	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: testChainID})
	require.NoError(t, err)
	return &testChain{t: t, app: app, reg: reg, nonces: make(map[string]uint64)}
}

func testKey(seed string) cmtcrypto.PrivKey {
	return ed25519.GenPrivKeyFromSecret([]byte(seed))
}

func (c *testChain) signTx(key cmtcrypto.PrivKey, txType tx.GovTxType, body any) []byte {
	c.t.Helper()
	addr := key.PubKey().Address().String()
	btx := &tx.GovTx{
		Version: tx.GovTxVersion0,
		Type:    txType,
		Nonce:   c.nonces[addr],
		Tx:      body,
	}
	require.NoError(c.t, btx.Sign(key, []byte(testChainID)))
	c.nonces[addr]++
	dat, err := tx.MarshalGovTx(btx)
	require.NoError(c.t, err)
	return dat
}

// commit runs a full block through the consensus connection.
func (c *testChain) commit(txs ...[]byte) *abcitypes.ResponseFinalizeBlock {
	c.t.Helper()
	ctx := context.Background()
	c.height++
	pres, err := c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: c.height, Txs: txs})
	require.NoError(c.t, err)
	require.Equal(c.t, abcitypes.ResponseProcessProposal_ACCEPT, pres.Status)
	res, err := c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: c.height, Txs: txs})
	require.NoError(c.t, err)
	require.Len(c.t, res.TxResults, len(txs))
	_, err = c.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	return res
}

func (c *testChain) query(path string, data []byte) *abcitypes.ResponseQuery {
	c.t.Helper()
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(c.t, err)
	return res
}

func (c *testChain) proposal(id common.Hash) *types.ProposalRecord {
	c.t.Helper()
	res := c.query("/proposal/", id.Bytes())
	require.Equal(c.t, gov.CodeOK, res.Code, res.Log)
	rec, err := types.UnmarshalProposalRecord(res.Value)
	require.NoError(c.t, err)
	return rec
}

func eventAttr(ev abcitypes.Event, key string) string {
	for _, attr := range ev.Attributes {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}

var testProposal = &tx.ProposalTx{
	Title:    []byte("Make X Free"),
	Contents: []byte("Simple: make X free for everyone"),
	Category: types.FundingCategory(12),
}

func TestProposalLifecycle(t *testing.T) {
	c := newTestChain(t)
	alice, bob, carol := testKey("alice"), testKey("bob"), testKey("carol")
	id := gov.ProposalHash(alice.PubKey().Address(), testProposal.Contents)

	res := c.commit(c.signTx(alice, tx.GovTxTypeProposal, testProposal))
	require.Equal(t, gov.CodeOK, res.TxResults[0].Code, res.TxResults[0].Log)
	require.Len(t, res.TxResults[0].Events, 1)
	ev := res.TxResults[0].Events[0]
	assert.Equal(t, types.EventNewProposalType, ev.Type)
	decoded := types.DecodeEventNewProposal(ev)
	require.NotNil(t, decoded)
	assert.Equal(t, id, decoded.Proposal)
	assert.Equal(t, alice.PubKey().Address(), decoded.Author)

	var count uint64
	require.NoError(t, json.Unmarshal(c.query("/proposals/count/", nil).Value, &count))
	assert.Equal(t, uint64(1), count)
	var ids []common.Hash
	require.NoError(t, json.Unmarshal(c.query("/proposals", nil).Value, &ids))
	assert.Equal(t, []common.Hash{id}, ids)

	rec := c.proposal(id)
	assert.Equal(t, types.StagePreVoting, rec.Stage)
	assert.Equal(t, uint64(1), rec.Index)
	assert.Equal(t, uint64(1), rec.Height)
	assert.Equal(t, testProposal.Title, rec.Title)

	// comment, non-author advance and early vote in one block
	res = c.commit(
		c.signTx(bob, tx.GovTxTypeComment, &tx.CommentTx{Proposal: id, Text: []byte("pls do not do this")}),
		c.signTx(bob, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: id}),
		c.signTx(carol, tx.GovTxTypeVote, &tx.VoteTx{Proposal: id, Choice: true}),
	)
	assert.Equal(t, gov.CodeOK, res.TxResults[0].Code)
	assert.Equal(t, types.EventNewCommentType, res.TxResults[0].Events[0].Type)
	assert.Equal(t, gov.CodeUnauthorized, res.TxResults[1].Code)
	assert.Empty(t, res.TxResults[1].Events)
	assert.Equal(t, gov.CodeNotInVotingStage, res.TxResults[2].Code)

	rec = c.proposal(id)
	assert.Equal(t, types.StagePreVoting, rec.Stage)
	require.Len(t, rec.Comments, 1)
	assert.Equal(t, bob.PubKey().Address(), rec.Comments[0].Author)

	res = c.commit(c.signTx(alice, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: id}))
	require.Equal(t, gov.CodeOK, res.TxResults[0].Code, res.TxResults[0].Log)
	assert.Equal(t, types.EventVotingStartedType, res.TxResults[0].Events[0].Type)
	assert.Equal(t, types.StageVoting, c.proposal(id).Stage)

	res = c.commit(
		c.signTx(bob, tx.GovTxTypeVote, &tx.VoteTx{Proposal: id, Choice: false}),
		c.signTx(carol, tx.GovTxTypeVote, &tx.VoteTx{Proposal: id, Choice: true}),
		c.signTx(alice, tx.GovTxTypeVote, &tx.VoteTx{Proposal: id, Choice: true}),
	)
	for _, r := range res.TxResults {
		require.Equal(t, gov.CodeOK, r.Code, r.Log)
	}
	assert.Equal(t, "true", eventAttr(res.TxResults[1].Events[0], "choice"))

	var tally TallyResult
	require.NoError(t, json.Unmarshal(c.query("/tally/", id.Bytes()).Value, &tally))
	assert.Equal(t, uint64(2), tally.Yes)
	assert.Equal(t, uint64(1), tally.No)
	assert.Equal(t, uint64(3), tally.Voters)
	assert.Equal(t, types.OutcomePending, tally.Outcome)

	res = c.commit(c.signTx(alice, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: id}))
	require.Equal(t, gov.CodeOK, res.TxResults[0].Code, res.TxResults[0].Log)
	completed := types.DecodeEventVotingCompleted(res.TxResults[0].Events[0])
	require.NotNil(t, completed)
	assert.Equal(t, types.OutcomePassed, completed.Outcome)

	rec = c.proposal(id)
	assert.Equal(t, types.StageCompleted, rec.Stage)
	assert.Equal(t, types.OutcomePassed, rec.Outcome)

	res = c.commit(
		c.signTx(alice, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: id}),
		c.signTx(bob, tx.GovTxTypeVote, &tx.VoteTx{Proposal: id, Choice: true}),
	)
	assert.Equal(t, gov.CodeAlreadyCompleted, res.TxResults[0].Code)
	assert.Equal(t, gov.CodeNotInVotingStage, res.TxResults[1].Code)

	assert.Equal(t, float64(7), testutil.ToFloat64(c.app.metrics.txsTotal.WithLabelValues("vote", "0"))+
		testutil.ToFloat64(c.app.metrics.txsTotal.WithLabelValues("advance", "0"))+
		testutil.ToFloat64(c.app.metrics.txsTotal.WithLabelValues("comment", "0"))+
		testutil.ToFloat64(c.app.metrics.txsTotal.WithLabelValues("proposal", "0")))
}

func TestDuplicateAndInvalidProposals(t *testing.T) {
	c := newTestChain(t)
	alice := testKey("alice")

	res := c.commit(
		c.signTx(alice, tx.GovTxTypeProposal, testProposal),
		c.signTx(alice, tx.GovTxTypeProposal, &tx.ProposalTx{Title: []byte("other title"), Contents: testProposal.Contents}),
		c.signTx(alice, tx.GovTxTypeProposal, &tx.ProposalTx{Contents: []byte("no title")}),
		c.signTx(alice, tx.GovTxTypeProposal, &tx.ProposalTx{Title: []byte("no contents")}),
		c.signTx(alice, tx.GovTxTypeProposal, &tx.ProposalTx{Contents: []byte("bad category"), Category: types.ProposalCategory{Kind: 99}}),
		c.signTx(alice, tx.GovTxTypeProposal, &tx.ProposalTx{Title: []byte("t"), Contents: []byte("bad category"), Category: types.ProposalCategory{Kind: 99}}),
	)
	assert.Equal(t, gov.CodeOK, res.TxResults[0].Code)
	assert.Equal(t, gov.CodeDuplicateProposal, res.TxResults[1].Code)
	assert.Equal(t, gov.CodeEmptyTitle, res.TxResults[2].Code)
	assert.Equal(t, gov.CodeEmptyContent, res.TxResults[3].Code)
	assert.Equal(t, gov.CodeEmptyTitle, res.TxResults[4].Code)
	assert.Equal(t, gov.CodeInternal, res.TxResults[5].Code)

	var count uint64
	require.NoError(t, json.Unmarshal(c.query("/proposals/count/", nil).Value, &count))
	assert.Equal(t, uint64(1), count)

	// failed transactions still consume their nonce
	var acnt struct {
		Nonce uint64 `json:"nonce"`
	}
	aq := c.query("/accounts/", alice.PubKey().Address())
	require.Equal(t, uint32(0), aq.Code)
	require.NoError(t, json.Unmarshal(aq.Value, &acnt))
	assert.Equal(t, uint64(6), acnt.Nonce)
}

func TestQueriesSeeOnlyCommittedState(t *testing.T) {
	c := newTestChain(t)
	alice := testKey("alice")
	ctx := context.Background()
	id := gov.ProposalHash(alice.PubKey().Address(), testProposal.Contents)

	txs := [][]byte{c.signTx(alice, tx.GovTxTypeProposal, testProposal)}
	res, err := c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: 1, Txs: txs})
	require.NoError(t, err)
	require.Equal(t, gov.CodeOK, res.TxResults[0].Code)

	// finalized but not committed
	var count uint64
	require.NoError(t, json.Unmarshal(c.query("/proposals/count/", nil).Value, &count))
	assert.Equal(t, uint64(0), count)
	var ids []common.Hash
	require.NoError(t, json.Unmarshal(c.query("/proposals/", nil).Value, &ids))
	assert.Empty(t, ids)
	assert.Equal(t, gov.CodeProposalNotFound, c.query("/proposal/", id.Bytes()).Code)
	assert.Equal(t, uint32(CodeQueryNotFound), c.query("/accounts/", alice.PubKey().Address()).Code)

	_, err = c.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(t, err)
	c.height = 1

	require.NoError(t, json.Unmarshal(c.query("/proposals/count/", nil).Value, &count))
	assert.Equal(t, uint64(1), count)
	require.NoError(t, json.Unmarshal(c.query("/proposals/", nil).Value, &ids))
	assert.Equal(t, []common.Hash{id}, ids)
	assert.Equal(t, testProposal.Title, c.proposal(id).Title)
}

func TestUnknownProposalQueries(t *testing.T) {
	c := newTestChain(t)
	id := gov.ProposalHash(testKey("alice").PubKey().Address(), []byte("never"))

	assert.Equal(t, gov.CodeProposalNotFound, c.query("/proposal/", id.Bytes()).Code)
	assert.Equal(t, gov.CodeProposalNotFound, c.query("/tally/", id.Bytes()).Code)
	assert.Equal(t, uint32(CodeQueryBadRequest), c.query("/proposal/", []byte{1, 2}).Code)
	assert.Equal(t, uint32(CodeQueryNoRoute), c.query("/nothing/", nil).Code)
	assert.Equal(t, uint32(CodeQueryNotFound), c.query("/accounts/", testKey("bob").PubKey().Address()).Code)
}

func TestBadTransactions(t *testing.T) {
	c := newTestChain(t)
	alice := testKey("alice")
	ctx := context.Background()

	good := c.signTx(alice, tx.GovTxTypeProposal, testProposal)
	check, err := c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: good})
	require.NoError(t, err)
	assert.Equal(t, gov.CodeOK, check.Code, check.Log)

	// signature from another chain
	btx := &tx.GovTx{Type: tx.GovTxTypeVote, Tx: &tx.VoteTx{}}
	require.NoError(t, btx.Sign(alice, []byte("other-chain")))
	forged, err := tx.MarshalGovTx(btx)
	require.NoError(t, err)
	check, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: forged})
	require.NoError(t, err)
	assert.Equal(t, gov.CodeInternal, check.Code)

	check, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: []byte("garbage")})
	require.NoError(t, err)
	assert.Equal(t, gov.CodeInternal, check.Code)

	pres, err := c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: 1, Txs: [][]byte{forged}})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_REJECT, pres.Status)

	prep, err := c.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{Height: 1, Txs: [][]byte{forged, good, good}, MaxTxBytes: 1 << 20})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{good}, prep.Txs)

	res := c.commit(prep.Txs...)
	assert.Equal(t, gov.CodeOK, res.TxResults[0].Code)
}

func TestAppHashIsDeterministic(t *testing.T) {
	run := func() []byte {
		c := newTestChain(t)
		alice := testKey("alice")
		c.commit(c.signTx(alice, tx.GovTxTypeProposal, testProposal))
		res := c.commit(c.signTx(testKey("bob"), tx.GovTxTypeComment, &tx.CommentTx{
			Proposal: gov.ProposalHash(alice.PubKey().Address(), testProposal.Contents),
			Text:     []byte("+1"),
		}))
		info, err := c.app.Info(context.Background(), &abcitypes.RequestInfo{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), info.LastBlockHeight)
		assert.Equal(t, res.AppHash, info.LastBlockAppHash)
		return res.AppHash
	}
	assert.Equal(t, run(), run())
}

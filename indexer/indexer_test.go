package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calehh/gov-app/app"
	"github.com/calehh/gov-app/config"
	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/tx"
	gov_types "github.com/calehh/gov-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testChainID = "gov-indexer-test"
	defaultWait = 5 * time.Second
	defaultTick = 10 * time.Millisecond
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

// appChain serves the indexer straight from an in-process application.
type appChain struct {
	t       *testing.T
	app     *app.GovApp
	height  int64
	results map[int64][]*abcitypes.ExecTxResult
	nonces  map[string]uint64
}

func newAppChain(t *testing.T) *appChain {
	t.Helper()
	cfg := config.DefaultAppConfig(t.TempDir())
	cfg.DBBackend = "memdb"
	a, err := app.NewGovApp(cfg, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	_, err = a.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: testChainID})
	require.NoError(t, err)
	return &appChain{
		t:       t,
		app:     a,
		results: make(map[int64][]*abcitypes.ExecTxResult),
		nonces:  make(map[string]uint64),
	}
}

func (c *appChain) Status(ctx context.Context) (*ctypes.ResultStatus, error) {
	return &ctypes.ResultStatus{SyncInfo: ctypes.SyncInfo{LatestBlockHeight: c.height}}, nil
}

func (c *appChain) BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error) {
	res, ok := c.results[*height]
	if !ok {
		return nil, fmt.Errorf("height %d not available", *height)
	}
	return &ctypes.ResultBlockResults{Height: *height, TxsResults: res}, nil
}

func (c *appChain) ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
	res, err := c.app.Query(ctx, &abcitypes.RequestQuery{Path: path, Data: data})
	if err != nil {
		return nil, err
	}
	return &ctypes.ResultABCIQuery{Response: *res}, nil
}

func (c *appChain) signTx(key cmtcrypto.PrivKey, txType tx.GovTxType, body any) []byte {
	c.t.Helper()
	addr := key.PubKey().Address().String()
	btx := &tx.GovTx{Version: tx.GovTxVersion0, Type: txType, Nonce: c.nonces[addr], Tx: body}
	require.NoError(c.t, btx.Sign(key, []byte(testChainID)))
	c.nonces[addr]++
	dat, err := tx.MarshalGovTx(btx)
	require.NoError(c.t, err)
	return dat
}

func (c *appChain) commit(txs ...[]byte) {
	c.t.Helper()
	ctx := context.Background()
	c.height++
	res, err := c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: c.height, Txs: txs})
	require.NoError(c.t, err)
	_, err = c.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	c.results[c.height] = res.TxResults
}

func newTestIndexer(t *testing.T, cli ChainClient) *ChainIndexer {
	t.Helper()
	db, err := OpenDB("")
	require.NoError(t, err)
	idx, err := NewChainIndexer(cmtlog.NewNopLogger(), db, cli, defaultTick)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func postJSON(t *testing.T, h http.Handler, path string, req any, res any) int {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
	if res != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), res))
	}
	return w.Code
}

func key(seed string) cmtcrypto.PrivKey {
	return ed25519.GenPrivKeyFromSecret([]byte(seed))
}

type fixture struct {
	chain             *appChain
	alice, bob, carol cmtcrypto.PrivKey
	first, second     common.Hash
}

// newFixture commits two proposals: the first goes through a full vote,
// the second only collects comments.
func newFixture(t *testing.T) *fixture {
	f := &fixture{chain: newAppChain(t), alice: key("alice"), bob: key("bob"), carol: key("carol")}
	c := f.chain
	first := &tx.ProposalTx{Title: []byte("Make X Free"), Contents: []byte("Simple: make X free for everyone"), Category: gov_types.FundingCategory(12)}
	second := &tx.ProposalTx{Title: []byte("Proposal 2"), Contents: []byte("Signal support for Y")}
	f.first = gov.ProposalHash(f.alice.PubKey().Address(), first.Contents)
	f.second = gov.ProposalHash(f.bob.PubKey().Address(), second.Contents)

	c.commit(
		c.signTx(f.alice, tx.GovTxTypeProposal, first),
		c.signTx(f.bob, tx.GovTxTypeProposal, second),
	)
	c.commit(
		c.signTx(f.bob, tx.GovTxTypeComment, &tx.CommentTx{Proposal: f.first, Text: []byte("pls do not do this")}),
		c.signTx(f.carol, tx.GovTxTypeComment, &tx.CommentTx{Proposal: f.first, Text: []byte("+1")}),
		c.signTx(f.alice, tx.GovTxTypeComment, &tx.CommentTx{Proposal: f.second, Text: []byte("why?")}),
		// rejected: only the author may advance
		c.signTx(f.bob, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: f.first}),
	)
	c.commit(c.signTx(f.alice, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: f.first}))
	c.commit(
		c.signTx(f.bob, tx.GovTxTypeVote, &tx.VoteTx{Proposal: f.first, Choice: false}),
		c.signTx(f.carol, tx.GovTxTypeVote, &tx.VoteTx{Proposal: f.first, Choice: true}),
	)
	// bob changes their vote
	c.commit(c.signTx(f.bob, tx.GovTxTypeVote, &tx.VoteTx{Proposal: f.first, Choice: true}))
	c.commit(c.signTx(f.alice, tx.GovTxTypeAdvance, &tx.AdvanceTx{Proposal: f.first}))
	return f
}

func TestIndexerSync(t *testing.T) {
	f := newFixture(t)
	idx := newTestIndexer(t, f.chain)
	require.NoError(t, idx.Sync(context.Background()))
	assert.Equal(t, f.chain.height+1, idx.Height)

	p, err := idx.getProposalById(f.first.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Index)
	assert.Equal(t, "Make X Free", p.Title)
	assert.Equal(t, "funding", p.Category)
	assert.Equal(t, uint64(12), p.Amount)
	assert.Equal(t, f.alice.PubKey().Address().String(), p.AuthorAddress)
	assert.Equal(t, gov_types.StageCompleted.String(), p.Stage)
	assert.Equal(t, gov_types.OutcomePassed.String(), p.Outcome)
	assert.Equal(t, uint64(1), p.NewHeight)
	assert.Equal(t, uint64(3), p.VotingHeight)
	assert.Equal(t, uint64(6), p.CompletedHeight)

	comments, total, err := idx.getCommentsByProposal(f.first.Hex(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	require.Len(t, comments, 2)
	assert.Equal(t, "pls do not do this", comments[0].Text)
	assert.Equal(t, "+1", comments[1].Text)
	assert.Equal(t, f.carol.PubKey().Address().String(), comments[1].AuthorAddress)

	yes, no, err := idx.countVotes(f.first.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), yes)
	assert.Equal(t, uint64(0), no)

	p2, err := idx.getProposalById(f.second.Hex())
	require.NoError(t, err)
	assert.Equal(t, gov_types.StagePreVoting.String(), p2.Stage)
	assert.Equal(t, uint64(2), p2.Index)

	// nothing new to index
	require.NoError(t, idx.Sync(context.Background()))
	cnt, err := idx.countComments(f.first.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cnt)
}

func TestIndexerResumes(t *testing.T) {
	c := newAppChain(t)
	alice := key("alice")
	c.commit(c.signTx(alice, tx.GovTxTypeProposal, &tx.ProposalTx{Title: []byte("t"), Contents: []byte("one")}))

	db, err := OpenDB("")
	require.NoError(t, err)
	idx, err := NewChainIndexer(cmtlog.NewNopLogger(), db, c, 0)
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Sync(context.Background()))

	c.commit(c.signTx(alice, tx.GovTxTypeProposal, &tx.ProposalTx{Title: []byte("t"), Contents: []byte("two")}))
	// a second indexer on the same database continues after the saved height
	resumed, err := NewChainIndexer(cmtlog.NewNopLogger(), db, c, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resumed.Height)
	require.NoError(t, resumed.Sync(context.Background()))

	proposals, total, err := resumed.getProposals("", "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	require.Len(t, proposals, 2)
	assert.Equal(t, uint64(2), proposals[0].Index)
}

func TestIndexerStartStops(t *testing.T) {
	c := newAppChain(t)
	c.commit(c.signTx(key("alice"), tx.GovTxTypeProposal, &tx.ProposalTx{Title: []byte("t"), Contents: []byte("c")}))
	idx := newTestIndexer(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		idx.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		_, total, err := idx.getProposals("", "", 0, 1)
		return err == nil && total == 1
	}, defaultWait, defaultTick)
	cancel()
	<-done
}

func TestService(t *testing.T) {
	f := newFixture(t)
	idx := newTestIndexer(t, f.chain)
	require.NoError(t, idx.Sync(context.Background()))
	h := NewService("127.0.0.1:0", idx).Handler()

	var proposals GetProposalsResponse
	require.Equal(t, http.StatusOK, postJSON(t, h, "/getProposals", GetProposalsReq{PageSize: 10}, &proposals))
	assert.Equal(t, uint64(2), proposals.Total)
	require.Len(t, proposals.Proposals, 2)
	assert.Equal(t, f.second.Hex(), proposals.Proposals[0].Proposal.Id)
	assert.Equal(t, uint64(1), proposals.Proposals[0].CommentCnt)
	assert.Equal(t, uint64(2), proposals.Proposals[1].CommentCnt)
	assert.Equal(t, uint64(2), proposals.Proposals[1].Yes)

	require.Equal(t, http.StatusOK, postJSON(t, h, "/getProposals", GetProposalsReq{Stage: "Completed"}, &proposals))
	require.Len(t, proposals.Proposals, 1)
	assert.Equal(t, f.first.Hex(), proposals.Proposals[0].Proposal.Id)

	require.Equal(t, http.StatusOK, postJSON(t, h, "/getProposals", GetProposalsReq{ProposalId: f.second.Hex()[2:]}, &proposals))
	require.Len(t, proposals.Proposals, 1)
	assert.Equal(t, "Proposal 2", proposals.Proposals[0].Proposal.Title)

	assert.Equal(t, http.StatusNotFound, postJSON(t, h, "/getProposals", GetProposalsReq{ProposalId: common.Hash{1}.Hex()}, nil))
	assert.Equal(t, http.StatusBadRequest, postJSON(t, h, "/getProposals", GetProposalsReq{ProposalId: "xyz"}, nil))

	var comments GetCommentsResponse
	require.Equal(t, http.StatusOK, postJSON(t, h, "/getComments", GetCommentsReq{ProposalId: f.first.Hex(), Page: 1, PageSize: 1}, &comments))
	assert.Equal(t, uint64(2), comments.Total)
	require.Len(t, comments.Comments, 1)
	assert.Equal(t, "+1", comments.Comments[0].Text)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, h, "/getComments", GetCommentsReq{}, nil))

	var votes GetVotesResponse
	require.Equal(t, http.StatusOK, postJSON(t, h, "/getVotes", GetVotesReq{Voter: f.bob.PubKey().Address().String()}, &votes))
	require.Len(t, votes.Votes, 1)
	assert.True(t, votes.Votes[0].Choice)
	assert.Equal(t, uint64(5), votes.Votes[0].Height)
}

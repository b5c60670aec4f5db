package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/gov-app/gov"
	gov_types "github.com/calehh/gov-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultInterval = time.Second

// ChainClient is the part of the node RPC the indexer reads from.
// *comethttp.HTTP satisfies it.
type ChainClient interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error)
	ABCIQuery(ctx context.Context, path string, data bytes.HexBytes) (*ctypes.ResultABCIQuery, error)
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Height        int64
	interval      time.Duration
	db            *gorm.DB
	cli           ChainClient
	eventHandlers map[string]eventHandler
}

// OpenDB opens the sqlite index. An empty path keeps the index in memory.
func OpenDB(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func NewChainIndexer(logger cmtlog.Logger, db *gorm.DB, cli ChainClient, interval time.Duration) (*ChainIndexer, error) {
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &Comment{}, &Vote{}); err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		interval: interval,
		db:       db,
		cli:      cli,
	}
	c.eventHandlers = map[string]eventHandler{
		gov_types.EventNewProposalType:     c.handleEventNewProposal,
		gov_types.EventNewCommentType:      c.handleEventNewComment,
		gov_types.EventVotingStartedType:   c.handleEventVotingStarted,
		gov_types.EventVotingCompletedType: c.handleEventVotingCompleted,
		gov_types.EventVoteType:            c.handleEventVote,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type eventHandler func(ctx context.Context, db *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(ctx context.Context, db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(ctx, db, event, height)
	}
	return nil
}

func (c *ChainIndexer) queryProposal(ctx context.Context, id common.Hash) (*gov_types.ProposalRecord, error) {
	res, err := c.cli.ABCIQuery(ctx, "/proposal/", id.Bytes())
	if err != nil {
		return nil, err
	}
	if res.Response.Code != gov.CodeOK {
		return nil, fmt.Errorf("query proposal %s: code %d %s", id.Hex(), res.Response.Code, res.Response.Log)
	}
	return gov_types.UnmarshalProposalRecord(res.Response.Value)
}

func (c *ChainIndexer) handleEventNewProposal(ctx context.Context, db *gorm.DB, event abci.Event, height int64) error {
	ev := gov_types.DecodeEventNewProposal(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	rec, err := c.queryProposal(ctx, ev.Proposal)
	if err != nil {
		return err
	}
	proposal := Proposal{
		Id:            ev.Proposal.Hex(),
		Index:         rec.Index,
		AuthorAddress: ev.Author.String(),
		Title:         string(rec.Title),
		Contents:      string(rec.Contents),
		Category:      rec.Category.Kind.String(),
		Amount:        rec.Category.Amount,
		Stage:         gov_types.StagePreVoting.String(),
		Outcome:       gov_types.OutcomePending.String(),
		NewHeight:     uint64(height),
	}
	return db.Save(&proposal).Error
}

// handleEventNewComment stores the next comment of the proposal. Comments
// are append-only on chain so the n-th event matches the n-th comment.
func (c *ChainIndexer) handleEventNewComment(ctx context.Context, db *gorm.DB, event abci.Event, height int64) error {
	ev := gov_types.DecodeEventNewComment(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	pid := ev.Proposal.Hex()
	var cnt int64
	if err := db.Model(&Comment{}).Where("proposal = ?", pid).Count(&cnt).Error; err != nil {
		return err
	}
	rec, err := c.queryProposal(ctx, ev.Proposal)
	if err != nil {
		return err
	}
	if int(cnt) >= len(rec.Comments) {
		return fmt.Errorf("comment %d of proposal %s not found", cnt, pid)
	}
	cmt := rec.Comments[cnt]
	return db.Create(&Comment{
		Proposal:      pid,
		Seq:           uint64(cnt),
		AuthorAddress: cmt.Author.String(),
		Text:          string(cmt.Text),
		Height:        uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventVotingStarted(ctx context.Context, db *gorm.DB, event abci.Event, height int64) error {
	ev := gov_types.DecodeEventVotingStarted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	return db.Model(&Proposal{Id: ev.Proposal.Hex()}).Updates(map[string]any{
		"stage":         gov_types.StageVoting.String(),
		"voting_height": uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventVotingCompleted(ctx context.Context, db *gorm.DB, event abci.Event, height int64) error {
	ev := gov_types.DecodeEventVotingCompleted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	return db.Model(&Proposal{Id: ev.Proposal.Hex()}).Updates(map[string]any{
		"stage":            gov_types.StageCompleted.String(),
		"outcome":          ev.Outcome.String(),
		"completed_height": uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventVote(ctx context.Context, db *gorm.DB, event abci.Event, height int64) error {
	ev := gov_types.DecodeEventVote(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return nil
	}
	vote := Vote{
		Proposal:     ev.Proposal.Hex(),
		VoterAddress: ev.Voter.String(),
		Choice:       ev.Choice,
		Height:       uint64(height),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal"}, {Name: "voter_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"choice", "height"}),
	}).Create(&vote).Error
}

// indexBlock applies the events of every successful transaction of one block.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) error {
	results, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	return c.db.Transaction(func(tx *gorm.DB) error {
		for _, res := range results.TxsResults {
			if res.Code != gov.CodeOK {
				continue
			}
			for _, event := range res.Events {
				if err := c.handleEvent(ctx, tx, event, height); err != nil {
					return err
				}
			}
		}
		return tx.Save(&Height{Id: 1, Height: uint64(height)}).Error
	})
}

// Sync indexes every block up to the latest height of the node.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	status, err := c.cli.Status(ctx)
	if err != nil {
		return err
	}
	for status.SyncInfo.LatestBlockHeight >= c.Height {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Debug("indexer syncing", "height", c.Height)
		if err := c.indexBlock(ctx, c.Height); err != nil {
			return fmt.Errorf("index block %d: %w", c.Height, err)
		}
		c.Height++
	}
	return nil
}

// Start polls the node until ctx is done.
func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

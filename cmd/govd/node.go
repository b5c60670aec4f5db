package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/gov-app/app"
	"github.com/calehh/gov-app/config"
	"github.com/calehh/gov-app/indexer"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "govd",
	Short: "govd runs a governance chain",
	Long: `A CometBFT chain where accounts submit proposals, discuss them,
and vote once their authors open the voting stage.`,
	Args: cobra.NoArgs,
	Run:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&homeDir, FlagHome, "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	if homeDir == "" {
		homeDir = os.ExpandEnv(config.DefaultHomeDir)
	}
	cfg, err := config.LoadConfig(homeDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pv := privval.LoadFilePV(
		cfg.PrivValidatorKeyFile(),
		cfg.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	// the node serves the default registry when instrumentation is on
	cfg.App.PromRegistry = prometheus.DefaultRegisterer
	govApp, err := app.NewGovApp(cfg.App, logger)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}

	node, err := nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(govApp),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}

	govApp.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	var stopIndexer func()
	if cfg.App.Indexer.Enabled {
		stopIndexer, err = startIndexer(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("start indexer err %s", err.Error())
		}
	}

	defer func() {
		log.Println("shut down...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			if stopIndexer != nil {
				stopIndexer()
			}
			if err := node.Stop(); err != nil {
				log.Printf("stop comet node err %s", err.Error())
			}
			node.Wait()
			govApp.Stop()
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// startIndexer follows the local node over RPC and serves the index over HTTP.
func startIndexer(ctx context.Context, cfg *config.Config, logger cmtlog.Logger) (stop func(), err error) {
	rpcUrl, err := url.Parse(cfg.RPC.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("parse rpc address: %w", err)
	}
	rpcUrl.Scheme = "http"
	cli, err := comethttp.New(rpcUrl.String(), "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := indexer.OpenDB(cfg.App.IndexerDBPath())
	if err != nil {
		return nil, err
	}
	idx, err := indexer.NewChainIndexer(logger, db, cli, cfg.App.Indexer.Interval)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		idx.Start(ctx)
	}()

	svc := indexer.NewService(cfg.App.Indexer.Listen, idx)
	go func() {
		if err := svc.Start(); err != nil {
			logger.Error("indexer service fail", "err", err)
		}
	}()
	logger.Info("indexer started", "rpc", rpcUrl.String(), "listen", cfg.App.Indexer.Listen)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			logger.Error("indexer service shutdown fail", "err", err)
		}
		<-done
		if err := idx.Close(); err != nil {
			logger.Error("close indexer db fail", "err", err)
		}
	}, nil
}

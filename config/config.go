package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/gov-app/gov"
	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultHomeDir       = "$HOME/.govd"
	DefaultIndexerListen = "127.0.0.1:8088"
	DefaultIndexerDB     = "indexer.db"
)

type IndexerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Listen   string        `mapstructure:"listen"`
	DBPath   string        `mapstructure:"db_path"`
	Interval time.Duration `mapstructure:"interval"`
}

// AppConfig is the [app] section of config.toml.
type AppConfig struct {
	Home        string        `mapstructure:"-"`
	DBBackend   string        `mapstructure:"db_backend"`
	TallyPolicy string        `mapstructure:"tally_policy"`
	Indexer     IndexerConfig `mapstructure:"indexer"`

	// PromRegistry receives the application metrics. Nil leaves them
	// unregistered.
	PromRegistry prometheus.Registerer `mapstructure:"-"`
}

func DefaultAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home:        home,
		DBBackend:   "goleveldb",
		TallyPolicy: gov.MajorityPolicy{}.Name(),
		Indexer: IndexerConfig{
			Enabled:  true,
			Listen:   DefaultIndexerListen,
			DBPath:   DefaultIndexerDB,
			Interval: 3 * time.Second,
		},
	}
}

// Policy resolves the configured tally policy.
func (c *AppConfig) Policy() (gov.TallyPolicy, error) {
	return gov.PolicyByName(c.TallyPolicy)
}

// IndexerDBPath is the sqlite file of the indexer, relative paths are taken
// from the home directory.
func (c *AppConfig) IndexerDBPath() string {
	if filepath.IsAbs(c.Indexer.DBPath) {
		return c.Indexer.DBPath
	}
	return filepath.Join(c.Home, c.Indexer.DBPath)
}

func (c *AppConfig) ValidateBasic() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	switch c.DBBackend {
	case "", "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported db_backend %q", c.DBBackend)
	}
	if c.Indexer.Enabled && c.Indexer.Interval <= 0 {
		return fmt.Errorf("indexer interval must be positive")
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	cfg := &Config{
		DefaultCometConfig(),
		DefaultAppConfig(home),
	}
	cfg.SetRoot(home)
	_ = os.MkdirAll(filepath.Join(home, "config"), 0755)
	return cfg
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}

package state

import (
	"fmt"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

const (
	BackendGoLevelDB = "goleveldb"
	BackendMemDB     = "memdb"
)

// StateDB owns the IAVL tree and the last committed State. Block execution
// works on states handed out by NewState; readers go through View.
type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	ldb    dbm.DB
	db     *iavl.MutableTree

	state     *State
	committed *iavl.ImmutableTree
}

func openBackend(backend, dir string) (dbm.DB, error) {
	switch backend {
	case "", BackendGoLevelDB:
		return dbm.NewDB("gov", "goleveldb", dir)
	case BackendMemDB:
		return dbm.NewMemDB(), nil
	}
	return nil, fmt.Errorf("unsupported db backend %q", backend)
}

func NewStateDB(dir string, backend string, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "govdb")
	ldb, err := openBackend(backend, dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ldb.Close()
		}
	}()
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version, "backend", backend)
	st := newState(tdb, logger)
	st.dbVer = version
	err = st.load()
	if err != nil {
		logger.Error("from govdb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		ldb:    ldb,
		db:     tdb,
		state:  st,
	}
	if err = db.pinCommitted(); err != nil {
		return nil, err
	}
	return
}

// pinCommitted points View at the last saved tree version.
func (db *StateDB) pinCommitted() error {
	ver := db.state.dbVer
	if ver == 0 {
		db.committed = iavl.NewImmutableTree(dbm.NewMemDB(), 0, true, Cometbft2CosmosLogger(db.logger))
		return nil
	}
	t, err := db.db.GetImmutable(ver)
	if err != nil {
		return fmt.Errorf("load tree version %d: %w", ver, err)
	}
	db.committed = t
	return nil
}

// Close releases the tree and then the backend it was opened on. The tree
// does not close its backend itself.
func (db *StateDB) Close() error {
	terr := db.db.Close()
	if err := db.ldb.Close(); err != nil {
		return err
	}
	return terr
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

// NewState returns the working state of the next block.
func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// View runs fn on a throwaway copy of the committed state. It reads the last
// saved tree version, so a block flushed by Update but not yet committed is
// not visible. Changes fn makes are never written.
func (db *StateDB) View(fn func(st *State) error) error {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return fn(db.state.snapshot(db.committed))
}

// Update flushes the working state into the tree. The result becomes
// visible to View and durable once SetState saves it.
func (db *StateDB) Update(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return st.Update()
}

// SetState saves st as the next committed version. st must be ahead of the
// state committed so far.
func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	if db.state.header.GetHash() != nil && st.header.Height <= db.state.header.Height {
		return common.Hash{}, fmt.Errorf("%w: committed %d, got %d",
			ErrStateHeightUnmatched, db.state.header.Height, st.header.Height)
	}
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	err = db.pinCommitted()
	return
}

func (db *StateDB) GetAccountByIndex(idx uint64) (acnt *Account, height uint64, err error) {
	err = db.View(func(st *State) error {
		a, err := st.GetAccount(idx)
		if err != nil {
			return err
		}
		acnt = a.Clone()
		height = st.header.Height
		return nil
	})
	return
}

func (db *StateDB) GetAccountByAddress(addr []byte) (acnt *Account, height uint64, err error) {
	err = db.View(func(st *State) error {
		a, err := st.FindAccount(addr)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrAccountNoexists
		}
		acnt = a.Clone()
		height = st.header.Height
		return nil
	})
	return
}

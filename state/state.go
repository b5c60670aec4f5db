package state

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/calehh/gov-app/gov"
	gov_types "github.com/calehh/gov-app/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	StartAccountIdx = 65536

	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
)

var (
	KeyState         = "s"
	KeyAccountIndex  = "i%s"
	KeyAccountBody   = "a%x"
	KeyProposalBody  = "p%x"
	KeyProposalOrder = "o%016x"
	KeyBallot        = "b%x%x"
)

var (
	ErrTxNonceInvalid       = errors.New("nonce invalid")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrTxPubKeyInvalid      = errors.New("public key invalid")
	ErrStateHeightUnmatched = errors.New("state height unmatched")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNoexists      = errors.New("account noexists")
)

var _ gov.StateStore = &State{}

// treeReader is the read side shared by the working tree and committed
// snapshots.
type treeReader interface {
	Get(key []byte) ([]byte, error)
	Iterator(start, end []byte, ascending bool) (dbm.Iterator, error)
}

// State is the working set of one block on top of the committed tree. Reads
// fall through to reader, writes stay in memory until Update.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	reader treeReader
	dbVer  int64

	header *StateHeader
	idxs   map[string]uint64
	acnts  map[uint64]*Account

	modifiedAcnts     map[uint64]uint32
	proposals         map[common.Hash]*gov_types.ProposalRecord
	modifiedProposals map[common.Hash]uint32
	ballots           map[common.Hash]map[string]gov_types.Ballot
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger:            logger,
		db:                db,
		reader:            db,
		dbVer:             0,
		header:            new(StateHeader),
		idxs:              make(map[string]uint64),
		acnts:             make(map[uint64]*Account),
		modifiedAcnts:     make(map[uint64]uint32),
		proposals:         make(map[common.Hash]*gov_types.ProposalRecord),
		modifiedProposals: make(map[common.Hash]uint32),
		ballots:           make(map[common.Hash]map[string]gov_types.Ballot),
	}
	s.header.AccountIdx = StartAccountIdx
	return s
}

// nextState starts the working set of the following block.
func (s *State) nextState() *State {
	n := s.view()
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

// view shares the committed header but none of the caches.
func (s *State) view() *State {
	n := newState(s.db, s.logger)
	n.dbVer = s.dbVer
	n.header = s.header.Clone()
	return n
}

// snapshot is a read only view pinned to the saved tree version, so writes
// flushed by Update stay invisible until the next SaveVersion.
func (s *State) snapshot(r treeReader) *State {
	n := s.view()
	n.reader = r
	return n
}

func deepCopyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		switch x := any(v).(type) {
		case *Account:
			res[k] = any(x.Clone()).(V)
		case *gov_types.ProposalRecord:
			res[k] = any(x.Clone()).(V)
		case map[string]gov_types.Ballot:
			res[k] = any(deepCopyMap(x)).(V)
		default:
			res[k] = v
		}
	}
	return res
}

// Clone copies the working set so a transaction can be tried without
// touching s.
func (s *State) Clone() *State {
	return &State{
		logger:            s.logger,
		db:                s.db,
		reader:            s.reader,
		dbVer:             s.dbVer,
		header:            s.header.Clone(),
		idxs:              deepCopyMap(s.idxs),
		acnts:             deepCopyMap(s.acnts),
		modifiedAcnts:     deepCopyMap(s.modifiedAcnts),
		proposals:         deepCopyMap(s.proposals),
		modifiedProposals: deepCopyMap(s.modifiedProposals),
		ballots:           deepCopyMap(s.ballots),
	}
}

func (s *State) get(key []byte) ([]byte, error) {
	val, err := s.reader.Get(key)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (s *State) load() (err error) {
	val, err := s.get([]byte(KeyState))
	if err != nil {
		return err
	}
	if val != nil {
		err = s.header.Unmarshal(val)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = bytes.Clone(rootHash)
		s.header.Hash = bytes.Clone(h[:])
	}
	return
}

// Update writes the working set into the tree and returns the resulting app
// hash. The tree version is only saved on commit.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	var val []byte
	val, err = s.header.Marshal()
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	if err = s.updateProposals(); err != nil {
		return
	}
	if err = s.updateBallots(); err != nil {
		return
	}

	n := len(s.modifiedAcnts)
	if n > 0 {
		idxs := make([]uint64, 0, n)
		for idx := range s.modifiedAcnts {
			idxs = append(idxs, idx)
		}
		sort.Slice(idxs, func(i, j int) bool {
			return idxs[i] < idxs[j]
		})
		for _, idx := range idxs {
			flag := s.modifiedAcnts[idx]
			acnt := s.acnts[idx]
			key := fmt.Sprintf(KeyAccountBody, acnt.Index)
			val, err = acnt.Marshal()
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(key), val)
			if err != nil {
				return
			}
			if flag&ModifiedFlagNew == ModifiedFlagNew {
				key = fmt.Sprintf(KeyAccountIndex, acnt.Address())
				val, err = rlp.EncodeToBytes(acnt.Index)
				if err != nil {
					return
				}
				_, err = s.db.Set([]byte(key), val)
				if err != nil {
					return
				}
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedAcnts = make(map[uint64]uint32)
	s.modifiedProposals = make(map[common.Hash]uint32)
	s.ballots = make(map[common.Hash]map[string]gov_types.Ballot)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) GetAccount(idx uint64) (acnt *Account, err error) {
	if idx >= s.header.AccountIdx {
		err = ErrAccountNoexists
		return
	}
	acnt = s.acnts[idx]
	if acnt != nil {
		return
	}
	key := fmt.Sprintf(KeyAccountBody, idx)
	val, err := s.get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		err = ErrAccountNoexists
		return
	}
	acnt = new(Account)
	err = acnt.Unmarshal(val)
	if err != nil {
		return nil, err
	}
	s.acnts[idx] = acnt
	return
}

// FindAccount looks an account up by address. A missing account is not an
// error: acnt is nil.
func (s *State) FindAccount(addr []byte) (acnt *Account, err error) {
	saddr := cmtcrypto.Address(addr).String()
	idx, ok := s.idxs[saddr]
	if !ok {
		key := fmt.Sprintf(KeyAccountIndex, saddr)
		val, err := s.get([]byte(key))
		if err != nil {
			return nil, err
		}
		if val == nil {
			return nil, nil
		}
		err = rlp.DecodeBytes(val, &idx)
		if err != nil {
			return nil, err
		}
		s.idxs[saddr] = idx
	}
	acnt, err = s.GetAccount(idx)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) SetHeight(height uint64) {
	s.header.Height = height
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) AddAccount(acnt *Account) (err error) {
	if len(acnt.PubKey) != ed25519.PubKeySize {
		return ErrTxPubKeyInvalid
	}
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return err
	}
	if a != nil {
		err = ErrAccountAlreadyExists
		return
	}
	acnt.Index = s.header.AccountIdx
	s.header.AccountIdx += 1
	s.acnts[acnt.Index] = acnt.Clone()
	s.idxs[acnt.Address()] = acnt.Index
	s.modifiedAcnts[acnt.Index] = ModifiedFlagNew
	return
}

// Verify authenticates a signed message from pubkey. Unknown keys are
// accepted with nonce 0 and registered by IncNonce.
func (s *State) Verify(pubkey []byte, nonce uint64, sigData []byte, sigs [][]byte, allowNonceGap bool) (err error) {
	if len(pubkey) != ed25519.PubKeySize {
		return ErrTxPubKeyInvalid
	}
	a, err := s.FindAccount(ed25519.PubKey(pubkey).Address())
	if err != nil {
		return err
	}
	if a == nil {
		a = &Account{PubKey: pubkey}
	}
	if !(a.Nonce == nonce || (allowNonceGap && a.Nonce < nonce)) {
		return ErrTxNonceInvalid
	}
	if !a.Verify(sigData, sigs) {
		return ErrTxSigInvalid
	}
	return nil
}

// IncNonce bumps the nonce of the account behind pubkey, creating it first if
// the key has never sent a transaction.
func (s *State) IncNonce(pubkey []byte) (err error) {
	a, err := s.FindAccount(ed25519.PubKey(pubkey).Address())
	if err != nil {
		return err
	}
	if a == nil {
		a = &Account{}
		a.SetPubKey(pubkey)
		if err = s.AddAccount(a); err != nil {
			return err
		}
	}
	a = s.acnts[a.Index]
	a.Nonce += 1
	s.modifiedAcnts[a.Index] |= ModifiedFlagMod
	return nil
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}

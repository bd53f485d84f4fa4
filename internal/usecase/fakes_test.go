package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

var (
	senderAddr  = common.HexToAddress("0x5e4d000000000000000000000000000000000001")
	wrapperAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	multiAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	factoryAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
	routerAddr  = common.HexToAddress("0x4444444444444444444444444444444444444444")

	pairCodeHash = "0xf301e7bb3b6c11c1d9ec3155aa16db5dfafdea975903e184ad76a07835715010"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Network: &config.Network{Name: "local", RPCURL: "http://127.0.0.1:8545", Local: true},
	}
}

// finswapPlan mirrors the token wrapper, multicall, factory, router sequence
func finswapPlan() *models.Plan {
	return &models.Plan{
		Name: "finswap",
		Steps: []*models.Step{
			{Name: "TokenWrapper", Contract: "WFTC"},
			{Name: "Multicall", Contract: "Multicall2"},
			{
				Name:     "Factory",
				Contract: "FinswapFactory",
				Args:     models.StaticArgs(senderAddr),
				Postcondition: &models.Postcondition{
					Method:   "pairCodeHash",
					Expected: pairCodeHash,
				},
			},
			{
				Name:      "Router",
				Contract:  "FinswapRouter",
				DependsOn: []string{"Factory", "TokenWrapper"},
				Args: func(book models.AddressBook) ([]any, error) {
					factory, err := book.Address("Factory")
					if err != nil {
						return nil, err
					}
					wrapper, err := book.Address("TokenWrapper")
					if err != nil {
						return nil, err
					}
					return []any{factory, wrapper}, nil
				},
			},
		},
	}
}

// fakeBlueprints resolves any name listed in known
type fakeBlueprints struct {
	known   map[string]bool
	lookups int
}

func newFakeBlueprints(names ...string) *fakeBlueprints {
	known := make(map[string]bool)
	for _, name := range names {
		known[name] = true
	}
	return &fakeBlueprints{known: known}
}

func finswapBlueprints() *fakeBlueprints {
	return newFakeBlueprints("WFTC", "Multicall2", "FinswapFactory", "FinswapRouter")
}

func (f *fakeBlueprints) GetBlueprint(_ context.Context, name string) (*models.Blueprint, error) {
	f.lookups++
	if !f.known[name] {
		return nil, domain.NoBlueprintMatchErr{Name: name}
	}
	return &models.Blueprint{Name: name, Bytecode: []byte{0x60, 0x00}, Source: "out/" + name + ".sol/" + name + ".json"}, nil
}

type deployCall struct {
	Contract string
	Args     []any
}

// fakeChain hands out a fixed address per contract and answers calls from a table.
// The transaction hash of a deployment is derived from its address.
type fakeChain struct {
	mu         sync.Mutex
	chainID    uint64
	addresses  map[string]common.Address
	deploys    []deployCall
	calls      []string
	deployErr  map[string]error // returned by SendDeployment, keyed by contract
	waitErr    map[string]error // returned by WaitDeployment, keyed by contract
	onWait     func(txHash common.Hash)
	results    map[string][]any // keyed by method
	callErr    error
	receipts   map[common.Hash]*models.DeployReceipt
	receiptErr map[common.Hash]error
	txStates   map[common.Hash]models.TxState
	noCode     map[common.Address]bool
	sent       map[common.Hash]string
}

func newFakeChain() *fakeChain {
	var hash [32]byte
	copy(hash[:], common.FromHex(pairCodeHash))
	return &fakeChain{
		chainID: 1337,
		addresses: map[string]common.Address{
			"WFTC":           wrapperAddr,
			"Multicall2":     multiAddr,
			"FinswapFactory": factoryAddr,
			"FinswapRouter":  routerAddr,
		},
		deployErr:  make(map[string]error),
		waitErr:    make(map[string]error),
		results:    map[string][]any{"pairCodeHash": {hash}},
		receipts:   make(map[common.Hash]*models.DeployReceipt),
		receiptErr: make(map[common.Hash]error),
		txStates:   make(map[common.Hash]models.TxState),
		noCode:     make(map[common.Address]bool),
		sent:       make(map[common.Hash]string),
	}
}

func txHashOf(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}

func (f *fakeChain) ChainID(context.Context) (uint64, error) { return f.chainID, nil }

func (f *fakeChain) Sender() common.Address { return senderAddr }

func (f *fakeChain) SendDeployment(_ context.Context, bp *models.Blueprint, args []any) (*models.PendingDeployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deploys = append(f.deploys, deployCall{Contract: bp.Name, Args: args})
	if err := f.deployErr[bp.Name]; err != nil {
		return nil, err
	}
	address, ok := f.addresses[bp.Name]
	if !ok {
		return nil, fmt.Errorf("no address configured for %s", bp.Name)
	}
	txHash := txHashOf(address)
	f.sent[txHash] = bp.Name
	return &models.PendingDeployment{TxHash: txHash, Address: address}, nil
}

func (f *fakeChain) WaitDeployment(_ context.Context, txHash common.Hash) (*models.DeployReceipt, error) {
	if f.onWait != nil {
		f.onWait(txHash)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	contract := f.sent[txHash]
	if err := f.waitErr[contract]; err != nil {
		return nil, &domain.DeploymentTxError{TxHash: txHash.Hex(), Err: err}
	}
	return &models.DeployReceipt{
		Address:     f.addresses[contract],
		TxHash:      txHash,
		BlockNumber: uint64(len(f.deploys)),
		GasUsed:     21000,
	}, nil
}

func (f *fakeChain) Call(_ context.Context, _ *models.Blueprint, address common.Address, method string, _ ...any) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+"@"+address.Hex())
	if f.callErr != nil {
		return nil, f.callErr
	}
	out, ok := f.results[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found", method)
	}
	return out, nil
}

func (f *fakeChain) Receipt(_ context.Context, txHash common.Hash) (*models.DeployReceipt, error) {
	if err := f.receiptErr[txHash]; err != nil {
		return nil, err
	}
	if receipt, ok := f.receipts[txHash]; ok {
		return receipt, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeChain) TransactionState(_ context.Context, txHash common.Hash) (models.TxState, error) {
	if state, ok := f.txStates[txHash]; ok {
		return state, nil
	}
	return models.TxUnknown, nil
}

func (f *fakeChain) HasCode(_ context.Context, address common.Address) (bool, error) {
	return !f.noCode[address], nil
}

func (f *fakeChain) deployedContracts() []string {
	names := make([]string, len(f.deploys))
	for i, d := range f.deploys {
		names[i] = d.Contract
	}
	return names
}

// memoryStore keeps serialized records so every Load returns an independent copy
type memoryStore struct {
	mu       sync.Mutex
	records  map[string][]byte
	archived map[string][]byte
	saves    int
	failAt   int // fail the n-th save (1-based), 0 never fails
	saveErr  error
	loadErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string][]byte), archived: make(map[string][]byte)}
}

func (s *memoryStore) Load(_ context.Context, key string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	data, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var record models.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *memoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failAt != 0 && s.saves == s.failAt {
		if s.saveErr != nil {
			return s.saveErr
		}
		return errors.New("disk full")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.records[record.Key()] = data
	return nil
}

func (s *memoryStore) Archive(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	s.archived[key] = data
	delete(s.records, key)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Record
	for _, data := range s.records {
		var record models.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, err
		}
		out = append(out, &record)
	}
	return out, nil
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) put(record *models.Record) {
	data, _ := json.Marshal(record)
	s.records[record.Key()] = data
}

// fakeLock refuses keys listed in held
type fakeLock struct {
	held     map[string]bool
	acquired []string
	released []string
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]bool)}
}

func (l *fakeLock) Acquire(_ context.Context, key string) (func() error, error) {
	if l.held[key] {
		return nil, &domain.ConcurrentRunError{Key: key, LockPath: key + ".lock"}
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func() error {
		delete(l.held, key)
		l.released = append(l.released, key)
		return nil
	}, nil
}

type fakeLoader struct {
	plan *models.Plan
	err  error
	vars usecase.PlanVars
}

func (l *fakeLoader) LoadPlan(_ context.Context, _ string, vars usecase.PlanVars) (*models.Plan, error) {
	l.vars = vars
	return l.plan, l.err
}

// MockConfirmer is a mock implementation of Confirmer
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

// MockManifestWriter is a mock implementation of ManifestWriter
type MockManifestWriter struct {
	mock.Mock
}

func (m *MockManifestWriter) WriteManifest(ctx context.Context, path string, result *models.DeploymentResult) error {
	args := m.Called(ctx, path, result)
	return args.Error(0)
}

// recordingSink collects progress events and runs an optional hook on each
type recordingSink struct {
	events []usecase.ProgressEvent
	hook   func(usecase.ProgressEvent)
}

func (s *recordingSink) OnProgress(_ context.Context, event usecase.ProgressEvent) {
	s.events = append(s.events, event)
	if s.hook != nil {
		s.hook(event)
	}
}

func (s *recordingSink) Info(string)  {}
func (s *recordingSink) Error(string) {}

func (s *recordingSink) stages() []usecase.ProgressStage {
	out := make([]usecase.ProgressStage, len(s.events))
	for i, e := range s.events {
		out[i] = e.Stage
	}
	return out
}

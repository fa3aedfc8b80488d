package contracts

import (
	"sort"
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/stretchr/testify/require"
)

// testLedger is a shared in-memory world state. Contexts built from the same
// ledger see each other's writes, so multi-identity scenarios run against one
// state like invocations against one channel.
type testLedger struct {
	state  map[string][]byte
	events map[string][]byte
}

func newTestLedger() *testLedger {
	return &testLedger{
		state:  make(map[string][]byte),
		events: make(map[string][]byte),
	}
}

// context returns a transaction context acting as the given identity.
func (l *testLedger) context(identity string) *contractapi.TransactionContext {
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(&fakeStub{ledger: l})
	ctx.SetClientIdentity(&fakeIdentity{id: identity})
	return ctx
}

// fakeStub implements the handful of stub methods the contracts use; the
// embedded interface panics on anything else, which keeps the fake honest.
type fakeStub struct {
	shim.ChaincodeStubInterface
	ledger *testLedger
}

func (s *fakeStub) GetState(key string) ([]byte, error) {
	value, ok := s.ledger.state[key]
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (s *fakeStub) PutState(key string, value []byte) error {
	s.ledger.state[key] = value
	return nil
}

func (s *fakeStub) DelState(key string) error {
	delete(s.ledger.state, key)
	return nil
}

func (s *fakeStub) SetEvent(name string, payload []byte) error {
	s.ledger.events[name] = payload
	return nil
}

func (s *fakeStub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	var keys []string
	for key := range s.ledger.state {
		if key >= startKey && key < endKey {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	kvs := make([]*queryresult.KV, 0, len(keys))
	for _, key := range keys {
		kvs = append(kvs, &queryresult.KV{Key: key, Value: s.ledger.state[key]})
	}
	return &fakeRangeIterator{kvs: kvs}, nil
}

type fakeRangeIterator struct {
	kvs []*queryresult.KV
	pos int
}

func (it *fakeRangeIterator) HasNext() bool {
	return it.pos < len(it.kvs)
}

func (it *fakeRangeIterator) Next() (*queryresult.KV, error) {
	kv := it.kvs[it.pos]
	it.pos++
	return kv, nil
}

func (it *fakeRangeIterator) Close() error {
	return nil
}

// fakeIdentity satisfies the parts of cid.ClientIdentity the contracts touch.
type fakeIdentity struct {
	cid.ClientIdentity
	id string
}

func (f *fakeIdentity) GetID() (string, error) {
	return f.id, nil
}

// Scenario helpers shared between the contract test files.

func registerUser(t *testing.T, l *testLedger, identity, name string, role Role) {
	t.Helper()
	ic := &IdentityContract{}
	require.NoError(t, ic.RegisterUser(l.context(identity), name, name+"@example.com", string(role)))
}

func initPlatform(t *testing.T, l *testLedger, owner string, fee uint64) {
	t.Helper()
	pc := &PlatformContract{}
	require.NoError(t, pc.InitializePlatform(l.context(owner), fee))
}

func fundWallet(t *testing.T, l *testLedger, identity string, amount uint64) {
	t.Helper()
	tc := &TreasuryContract{}
	require.NoError(t, tc.FundWallet(l.context(identity), amount))
}

func walletBalance(t *testing.T, l *testLedger, identity string) uint64 {
	t.Helper()
	tc := &TreasuryContract{}
	wallet, err := tc.GetMyWallet(l.context(identity))
	require.NoError(t, err)
	return wallet.Balance
}

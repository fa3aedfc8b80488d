package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Shared state-access helpers used by every contract in the chaincode. All
// writes issued during one invocation commit together or not at all, which is
// what keeps counter increments atomic with child creation.

func getJSON(ctx contractapi.TransactionContextInterface, key string, v interface{}) (bool, error) {
	data, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read state %s: %v", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode state %s: %v", key, err)
	}
	return true, nil
}

func putJSON(ctx contractapi.TransactionContextInterface, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(key, data)
}

// callerID returns the client identity string of the transaction submitter.
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %v", err)
	}
	return id, nil
}

// requireUser loads the caller's User record from its derived address.
func requireUser(ctx contractapi.TransactionContextInterface) (*User, error) {
	identity, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	var user User
	found, err := getJSON(ctx, stateKey(tagUser, userAddress(identity)), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: caller is not registered", ErrInvalidUser)
	}
	return &user, nil
}

// requireRole loads the caller's User record and checks it against the single
// role the handler permits.
func requireRole(ctx contractapi.TransactionContextInterface, role Role) (*User, error) {
	user, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, fmt.Errorf("%w: role %s required", ErrUnauthorized, role)
	}
	return user, nil
}

func saveUser(ctx contractapi.TransactionContextInterface, user *User) error {
	return putJSON(ctx, stateKey(tagUser, user.Address), user)
}

// loadWallet fetches an identity's wallet, creating a zero-balance record on
// first touch so credits to fresh identities always have a destination.
func loadWallet(ctx contractapi.TransactionContextInterface, identity string) (*Wallet, error) {
	addr := walletAddress(identity)
	var wallet Wallet
	found, err := getJSON(ctx, stateKey(tagWallet, addr), &wallet)
	if err != nil {
		return nil, err
	}
	if !found {
		wallet = Wallet{
			Address:   addr,
			Owner:     identity,
			Balance:   0,
			CreatedAt: time.Now().Unix(),
		}
	}
	return &wallet, nil
}

func saveWallet(ctx contractapi.TransactionContextInterface, wallet *Wallet) error {
	return putJSON(ctx, stateKey(tagWallet, wallet.Address), wallet)
}

func debitWallet(wallet *Wallet, amount uint64) error {
	if wallet.Balance < amount {
		return fmt.Errorf("%w: wallet holds %d, need %d", ErrInsufficientBalance, wallet.Balance, amount)
	}
	wallet.Balance -= amount
	return nil
}

func creditWallet(wallet *Wallet, amount uint64) error {
	next, err := addU64(wallet.Balance, amount)
	if err != nil {
		return err
	}
	wallet.Balance = next
	return nil
}

// recordTransaction appends one ledger entry keyed by the acting user's
// transaction counter and bumps that counter on the passed struct. The caller
// is responsible for persisting the user afterwards, in the same invocation.
func recordTransaction(ctx contractapi.TransactionContextInterface, user *User, from, to string, amount uint64) (*Transaction, error) {
	seq, err := nextSeq(user.TransactionCount)
	if err != nil {
		return nil, err
	}
	tx := Transaction{
		Address:   deriveAddress(tagTransaction, []byte(user.Address), seq),
		ID:        seq,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: time.Now().Unix(),
		Status:    true,
	}
	if err := putJSON(ctx, stateKey(tagTransaction, tx.Address), &tx); err != nil {
		return nil, err
	}
	user.TransactionCount = seq
	return &tx, nil
}

// forEachState walks every record of one kind in key order.
func forEachState(ctx contractapi.TransactionContextInterface, tag string, fn func(value []byte) error) error {
	start, end := keyRange(tag)
	iter, err := ctx.GetStub().GetStateByRange(start, end)
	if err != nil {
		return fmt.Errorf("failed to query %s records: %v", tag, err)
	}
	defer iter.Close()

	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return err
		}
		if err := fn(kv.Value); err != nil {
			return err
		}
	}
	return nil
}

// Entity loaders shared across contracts. Each maps a missing record onto
// the matching named error.

func getProduct(ctx contractapi.TransactionContextInterface, address string) (*Product, error) {
	var product Product
	found, err := getJSON(ctx, stateKey(tagProduct, address), &product)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, address)
	}
	return &product, nil
}

func getFactory(ctx contractapi.TransactionContextInterface, address string) (*Factory, error) {
	var factory Factory
	found, err := getJSON(ctx, stateKey(tagFactory, address), &factory)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFactory, address)
	}
	return &factory, nil
}

func getInspection(ctx contractapi.TransactionContextInterface, address string) (*Inspection, error) {
	var inspection Inspection
	found, err := getJSON(ctx, stateKey(tagInspection, address), &inspection)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInspector, address)
	}
	return &inspection, nil
}

func getWarehouse(ctx contractapi.TransactionContextInterface, address string) (*Warehouse, error) {
	var warehouse Warehouse
	found, err := getJSON(ctx, stateKey(tagWarehouse, address), &warehouse)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWarehouse, address)
	}
	return &warehouse, nil
}

func getLogistics(ctx contractapi.TransactionContextInterface, address string) (*Logistics, error) {
	var logistics Logistics
	found, err := getJSON(ctx, stateKey(tagLogistics, address), &logistics)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLogistics, address)
	}
	return &logistics, nil
}

// loadPlatform fetches the singleton platform state.
func loadPlatform(ctx contractapi.TransactionContextInterface) (*PlatformState, error) {
	var state PlatformState
	found, err := getJSON(ctx, stateKey(tagPlatform, platformAddress()), &state)
	if err != nil {
		return nil, err
	}
	if !found || !state.Initialized {
		return nil, ErrPlatformNotInitialized
	}
	return &state, nil
}

package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// PlatformContract manages the singleton platform state: the platform
// authority and the withdrawal fee percentage.
type PlatformContract struct {
	contractapi.Contract
}

// InitializePlatform creates the platform singleton. The caller becomes the
// platform owner; registration is exactly-once.
func (p *PlatformContract) InitializePlatform(ctx contractapi.TransactionContextInterface, fee uint64) error {
	if err := validatePlatformFee(fee); err != nil {
		return err
	}

	addr := platformAddress()
	existing, err := ctx.GetStub().GetState(stateKey(tagPlatform, addr))
	if err != nil {
		return fmt.Errorf("failed to read platform state: %v", err)
	}
	if existing != nil {
		return ErrPlatformAlreadyInitialized
	}

	owner, err := callerID(ctx)
	if err != nil {
		return err
	}

	state := PlatformState{
		Address:     addr,
		Owner:       owner,
		PlatformFee: fee,
		Initialized: true,
	}
	if err := putJSON(ctx, stateKey(tagPlatform, addr), &state); err != nil {
		return err
	}

	stateJSON, _ := json.Marshal(state)
	ctx.GetStub().SetEvent("PlatformInitialized", stateJSON)

	return nil
}

// UpdatePlatformFee changes the fee percentage. Only the platform owner may
// call it and the cap still applies; this is the sole fee mutator.
func (p *PlatformContract) UpdatePlatformFee(ctx contractapi.TransactionContextInterface, fee uint64) error {
	state, err := loadPlatform(ctx)
	if err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if state.Owner != caller {
		return fmt.Errorf("%w: only the platform owner can update the fee", ErrUnauthorized)
	}

	if err := validatePlatformFee(fee); err != nil {
		return err
	}

	state.PlatformFee = fee
	if err := putJSON(ctx, stateKey(tagPlatform, state.Address), state); err != nil {
		return err
	}

	stateJSON, _ := json.Marshal(state)
	ctx.GetStub().SetEvent("PlatformFeeUpdated", stateJSON)

	return nil
}

// GetPlatformState returns the platform singleton.
func (p *PlatformContract) GetPlatformState(ctx contractapi.TransactionContextInterface) (*PlatformState, error) {
	return loadPlatform(ctx)
}

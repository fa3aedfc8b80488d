package contracts

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// TreasuryContract moves value: wallet funding, fee-split withdrawals from
// entity escrow balances, and the transaction log projections. Every handler
// here is zero-sum across the payer, the recipient and (for withdrawals) the
// platform owner's wallet.
type TreasuryContract struct {
	contractapi.Contract
}

// FundWallet credits the caller's wallet. It is the on-ramp that stands in
// for native token transfers into the system; the ledger entry records the
// source as external.
func (t *TreasuryContract) FundWallet(ctx contractapi.TransactionContextInterface, amount uint64) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	wallet, err := loadWallet(ctx, user.Owner)
	if err != nil {
		return err
	}
	if err := creditWallet(wallet, amount); err != nil {
		return err
	}
	if err := saveWallet(ctx, wallet); err != nil {
		return err
	}

	if _, err := recordTransaction(ctx, user, "external", wallet.Address, amount); err != nil {
		return err
	}
	return saveUser(ctx, user)
}

// WithdrawAsFactory drains part of a factory's escrow balance to its owner,
// net of the platform fee.
func (t *TreasuryContract) WithdrawAsFactory(ctx contractapi.TransactionContextInterface,
	factoryAddress string, amount uint64) error {

	user, err := requireRole(ctx, RoleFactory)
	if err != nil {
		return err
	}
	factory, err := getFactory(ctx, factoryAddress)
	if err != nil {
		return err
	}
	if factory.Owner != user.Owner {
		return fmt.Errorf("%w: factory %s not owned by caller", ErrUnauthorized, factoryAddress)
	}
	if deriveAddress(tagFactory, []byte(user.Address), factory.ID) != factory.Address {
		return fmt.Errorf("%w: address mismatch", ErrInvalidFactory)
	}

	balance, err := t.settle(ctx, user, factory.Address, factory.Balance, amount)
	if err != nil {
		return err
	}
	factory.Balance = balance
	return putJSON(ctx, stateKey(tagFactory, factory.Address), factory)
}

// WithdrawAsSeller drains part of a seller's escrow balance to its owner.
func (t *TreasuryContract) WithdrawAsSeller(ctx contractapi.TransactionContextInterface,
	sellerAddress string, amount uint64) error {

	user, err := requireRole(ctx, RoleSeller)
	if err != nil {
		return err
	}
	var seller Seller
	found, err := getJSON(ctx, stateKey(tagSeller, sellerAddress), &seller)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrInvalidSeller, sellerAddress)
	}
	if seller.Owner != user.Owner {
		return fmt.Errorf("%w: seller %s not owned by caller", ErrUnauthorized, sellerAddress)
	}
	if deriveAddress(tagSeller, []byte(user.Address), seller.ID) != seller.Address {
		return fmt.Errorf("%w: address mismatch", ErrInvalidSeller)
	}

	balance, err := t.settle(ctx, user, seller.Address, seller.Balance, amount)
	if err != nil {
		return err
	}
	seller.Balance = balance
	return putJSON(ctx, stateKey(tagSeller, seller.Address), &seller)
}

// WithdrawAsWarehouse drains part of a warehouse's escrow balance to its owner.
func (t *TreasuryContract) WithdrawAsWarehouse(ctx contractapi.TransactionContextInterface,
	warehouseAddress string, amount uint64) error {

	user, err := requireRole(ctx, RoleWarehouse)
	if err != nil {
		return err
	}
	warehouse, err := getWarehouse(ctx, warehouseAddress)
	if err != nil {
		return err
	}
	if warehouse.Owner != user.Owner {
		return fmt.Errorf("%w: warehouse %s not owned by caller", ErrUnauthorized, warehouseAddress)
	}
	if deriveAddress(tagWarehouse, []byte(user.Address), warehouse.ID) != warehouse.Address {
		return fmt.Errorf("%w: address mismatch", ErrInvalidWarehouse)
	}

	balance, err := t.settle(ctx, user, warehouse.Address, warehouse.Balance, amount)
	if err != nil {
		return err
	}
	warehouse.Balance = balance
	return putJSON(ctx, stateKey(tagWarehouse, warehouse.Address), warehouse)
}

// WithdrawAsLogistics drains a delivered shipment's balance to its owner.
// Undelivered units hold their cost in escrow and cannot withdraw.
func (t *TreasuryContract) WithdrawAsLogistics(ctx contractapi.TransactionContextInterface,
	logisticsAddress string, amount uint64) error {

	user, err := requireRole(ctx, RoleLogistics)
	if err != nil {
		return err
	}
	logistics, err := getLogistics(ctx, logisticsAddress)
	if err != nil {
		return err
	}
	if logistics.Owner != user.Owner {
		return fmt.Errorf("%w: logistics %s not owned by caller", ErrUnauthorized, logisticsAddress)
	}
	if deriveAddress(tagLogistics, []byte(user.Address), logistics.ID) != logistics.Address {
		return fmt.Errorf("%w: address mismatch", ErrInvalidLogistics)
	}
	if !logistics.Delivered {
		return fmt.Errorf("%w: shipment not delivered", ErrOrderNotReady)
	}

	balance, err := t.settle(ctx, user, logistics.Address, logistics.Balance, amount)
	if err != nil {
		return err
	}
	logistics.Balance = balance
	return putJSON(ctx, stateKey(tagLogistics, logistics.Address), logistics)
}

// WithdrawAsInspector drains an inspection record's accrued fee balance to
// the inspector who wrote it.
func (t *TreasuryContract) WithdrawAsInspector(ctx contractapi.TransactionContextInterface,
	inspectionAddress string, amount uint64) error {

	user, err := requireRole(ctx, RoleInspector)
	if err != nil {
		return err
	}
	inspection, err := getInspection(ctx, inspectionAddress)
	if err != nil {
		return err
	}
	if inspection.Owner != user.Owner {
		return fmt.Errorf("%w: inspection %s not owned by caller", ErrUnauthorized, inspectionAddress)
	}
	if deriveAddress(tagInspection, []byte(user.Address), inspection.ID) != inspection.Address {
		return fmt.Errorf("%w: address mismatch", ErrInvalidInspector)
	}

	balance, err := t.settle(ctx, user, inspection.Address, inspection.Balance, amount)
	if err != nil {
		return err
	}
	inspection.Balance = balance
	return putJSON(ctx, stateKey(tagInspection, inspection.Address), inspection)
}

// settle carries the common withdrawal math: bounds checks, the platform fee
// split, wallet credits and the ledger entry. It returns the entity's new
// balance; the caller persists the entity itself.
func (t *TreasuryContract) settle(ctx contractapi.TransactionContextInterface,
	user *User, entityAddress string, entityBalance uint64, amount uint64) (uint64, error) {

	if amount < MinWithdrawAmount {
		return 0, fmt.Errorf("%w: minimum is %d", ErrInsufficientWithdraw, MinWithdrawAmount)
	}
	if amount > entityBalance {
		return 0, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientBalance, entityBalance, amount)
	}

	platform, err := loadPlatform(ctx)
	if err != nil {
		return 0, err
	}

	feeTotal, err := mulU64(amount, platform.PlatformFee)
	if err != nil {
		return 0, err
	}
	fee := feeTotal / 100
	net := amount - fee
	if fee+net != amount {
		return 0, fmt.Errorf("%w: fee split does not balance", ErrOverflow)
	}

	wallet, err := loadWallet(ctx, user.Owner)
	if err != nil {
		return 0, err
	}

	if platform.Owner == user.Owner {
		// Platform owner withdrawing from its own entity: both legs land in
		// one wallet.
		if err := creditWallet(wallet, amount); err != nil {
			return 0, err
		}
	} else {
		platformWallet, err := loadWallet(ctx, platform.Owner)
		if err != nil {
			return 0, err
		}
		if err := creditWallet(platformWallet, fee); err != nil {
			return 0, err
		}
		if err := creditWallet(wallet, net); err != nil {
			return 0, err
		}
		if err := saveWallet(ctx, platformWallet); err != nil {
			return 0, err
		}
	}
	if err := saveWallet(ctx, wallet); err != nil {
		return 0, err
	}

	if _, err := recordTransaction(ctx, user, entityAddress, wallet.Address, amount); err != nil {
		return 0, err
	}
	if err := saveUser(ctx, user); err != nil {
		return 0, err
	}

	return entityBalance - amount, nil
}

// GetMyWallet returns the caller's wallet record.
func (t *TreasuryContract) GetMyWallet(ctx contractapi.TransactionContextInterface) (*Wallet, error) {
	identity, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return loadWallet(ctx, identity)
}

// GetTransaction retrieves one ledger entry by derived address.
func (t *TreasuryContract) GetTransaction(ctx contractapi.TransactionContextInterface, address string) (*Transaction, error) {
	var tx Transaction
	found, err := getJSON(ctx, stateKey(tagTransaction, address), &tx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("transaction %s does not exist", address)
	}
	return &tx, nil
}

// ListTransactionsByUser walks a user's ledger entries by re-deriving their
// addresses from the user's PDA and transaction counter.
func (t *TreasuryContract) ListTransactionsByUser(ctx contractapi.TransactionContextInterface,
	userAddress string) ([]*Transaction, error) {

	var user User
	found, err := getJSON(ctx, stateKey(tagUser, userAddress), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUser, userAddress)
	}

	var entries []*Transaction
	for seq := uint64(1); seq <= user.TransactionCount; seq++ {
		addr := deriveAddress(tagTransaction, []byte(user.Address), seq)
		var tx Transaction
		found, err := getJSON(ctx, stateKey(tagTransaction, addr), &tx)
		if err != nil {
			return nil, err
		}
		if found {
			entries = append(entries, &tx)
		}
	}
	return entries, nil
}

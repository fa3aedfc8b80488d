package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// IdentityContract handles user registration and role lookups. A user record
// is the identity root: every other entity derives its address from the
// owning user's PDA and one of its counters.
type IdentityContract struct {
	contractapi.Contract
}

// RegisterUser creates the caller's User record. Registration is exactly-once
// per identity; the derived address doubles as the idempotency guard.
func (i *IdentityContract) RegisterUser(ctx contractapi.TransactionContextInterface,
	name string, email string, role string) error {

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	parsedRole, err := ParseRole(role)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	identity, err := callerID(ctx)
	if err != nil {
		return err
	}

	addr := userAddress(identity)
	existing, err := ctx.GetStub().GetState(stateKey(tagUser, addr))
	if err != nil {
		return fmt.Errorf("failed to read user: %v", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrUserAlreadyExists, addr)
	}

	user := User{
		Address:   addr,
		Name:      name,
		Role:      parsedRole,
		Email:     email,
		Owner:     identity,
		CreatedAt: time.Now().Unix(),
	}
	if err := saveUser(ctx, &user); err != nil {
		return err
	}

	userJSON, _ := json.Marshal(user)
	ctx.GetStub().SetEvent("UserRegistered", userJSON)

	return nil
}

// GetMyUser returns the caller's own User record.
func (i *IdentityContract) GetMyUser(ctx contractapi.TransactionContextInterface) (*User, error) {
	return requireUser(ctx)
}

// GetUser retrieves a user by derived address.
func (i *IdentityContract) GetUser(ctx contractapi.TransactionContextInterface, address string) (*User, error) {
	var user User
	found, err := getJSON(ctx, stateKey(tagUser, address), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUser, address)
	}
	return &user, nil
}

// ListUsersByRole returns all users registered with the given role.
func (i *IdentityContract) ListUsersByRole(ctx contractapi.TransactionContextInterface, role string) ([]*User, error) {
	parsedRole, err := ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	var users []*User
	err = forEachState(ctx, tagUser, func(value []byte) error {
		var user User
		if err := json.Unmarshal(value, &user); err != nil {
			return err
		}
		if user.Role == parsedRole {
			users = append(users, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

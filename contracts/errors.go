package contracts

import "errors"

// Named error taxonomy. Handlers wrap these with fmt.Errorf("...: %w", ...)
// so callers can match with errors.Is while still seeing the offending value.
var (
	ErrUnauthorized               = errors.New("unauthorized access")
	ErrInvalidPlatformFee         = errors.New("invalid platform fee")
	ErrPlatformAlreadyInitialized = errors.New("platform already initialized")
	ErrPlatformNotInitialized     = errors.New("platform not initialized")
	ErrUserAlreadyExists          = errors.New("user already registered")
	ErrInvalidUser                = errors.New("invalid user")
	ErrInvalidRole                = errors.New("invalid role")
	ErrInvalidProduct             = errors.New("invalid product id")
	ErrInvalidFactory             = errors.New("invalid factory")
	ErrInvalidInspector           = errors.New("invalid inspector")
	ErrInvalidWarehouse           = errors.New("invalid warehouse")
	ErrInvalidLogistics           = errors.New("invalid logistics")
	ErrInvalidSeller              = errors.New("invalid seller")
	ErrInvalidOrder               = errors.New("invalid order")
	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrInsufficientBalance        = errors.New("insufficient balance")
	ErrInsufficientWithdraw       = errors.New("withdraw amount below minimum")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrInvalidName                = errors.New("invalid name")
	ErrInvalidDescription         = errors.New("invalid description")
	ErrInvalidContactInfo         = errors.New("invalid contact info")
	ErrInvalidEmail               = errors.New("invalid email")
	ErrInvalidNotes               = errors.New("invalid notes")
	ErrInvalidOutcome             = errors.New("invalid inspection outcome")
	ErrInvalidTransportMode       = errors.New("invalid transport mode")
	ErrInvalidCoordinates         = errors.New("invalid coordinates")
	ErrQualityChecked             = errors.New("product already quality checked")
	ErrNotQualityChecked          = errors.New("product not quality checked")
	ErrInspectionFeePaid          = errors.New("inspection fee already paid")
	ErrWarehouseFull              = errors.New("warehouse capacity exceeded")
	ErrLogisticsNotFree           = errors.New("logistics unit not free")
	ErrOrderNotReady              = errors.New("order not in required state")
	ErrOverflow                   = errors.New("arithmetic overflow")
)

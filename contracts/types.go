package contracts

// User is the identity root for one wallet identity. Every other entity is
// owned by exactly one User and derives its address from that User's PDA.
type User struct {
	Address          string `json:"address"`
	Name             string `json:"name"`
	Role             Role   `json:"role"`
	Email            string `json:"email"`
	Owner            string `json:"owner"` // client identity the record belongs to
	CreatedAt        int64  `json:"createdAt"`
	FactoryCount     uint64 `json:"factoryCount"`
	WarehouseCount   uint64 `json:"warehouseCount"`
	SellerCount      uint64 `json:"sellerCount"`
	InspectorCount   uint64 `json:"inspectorCount"`
	LogisticsCount   uint64 `json:"logisticsCount"`
	TransactionCount uint64 `json:"transactionCount"`
	ProductCount     uint64 `json:"productCount"`
}

// Factory is a production site owned by a FACTORY-role user.
type Factory struct {
	Address      string  `json:"address"`
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Owner        string  `json:"owner"`
	CreatedAt    int64   `json:"createdAt"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ContactInfo  string  `json:"contactInfo"`
	ProductCount uint64  `json:"productCount"`
	Balance      uint64  `json:"balance"`
}

// Product is a stock-bearing item produced by a factory. Stock only ever
// decreases through sale/transfer handlers and QualityChecked flips
// false->true exactly once.
type Product struct {
	Address           string `json:"address"`
	ID                uint64 `json:"id"`
	FactoryID         uint64 `json:"factoryId"`
	FactoryAddress    string `json:"factoryAddress"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	BatchNo           string `json:"batchNo"`
	ImageURL          string `json:"imageUrl"`
	Price             uint64 `json:"price"`
	RawMaterialCost   uint64 `json:"rawMaterialCost"`
	MRP               uint64 `json:"mrp"`
	Stock             uint64 `json:"stock"`
	QualityChecked    bool   `json:"qualityChecked"`
	InspectionID      uint64 `json:"inspectionId"`
	InspectorAddress  string `json:"inspectorAddress"`
	InspectionFeePaid bool   `json:"inspectionFeePaid"`
	CreatedAt         int64  `json:"createdAt"`
}

// Inspection records one inspection event. Re-inspection appends a new record
// and repoints the product at it; the old record is kept but no longer
// referenced from the product.
type Inspection struct {
	Address        string  `json:"address"`
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	ProductID      uint64  `json:"productId"`
	ProductAddress string  `json:"productAddress"`
	Outcome        Outcome `json:"outcome"`
	Notes          string  `json:"notes"`
	InspectedAt    int64   `json:"inspectedAt"`
	FeePerProduct  uint64  `json:"feePerProduct"`
	Balance        uint64  `json:"balance"`
	Owner          string  `json:"owner"`
}

// Warehouse holds purchased product units up to WarehouseSize.
type Warehouse struct {
	Address        string  `json:"address"`
	ID             uint64  `json:"id"`
	FactoryID      uint64  `json:"factoryId"`
	CreatedAt      int64   `json:"createdAt"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	ProductID      uint64  `json:"productId"`
	ProductAddress string  `json:"productAddress"`
	ProductCount   uint64  `json:"productCount"` // units currently held
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Balance        uint64  `json:"balance"`
	ContactInfo    string  `json:"contactInfo"`
	Owner          string  `json:"owner"`
	WarehouseSize  uint64  `json:"warehouseSize"`
	LogisticsCount uint64  `json:"logisticsCount"`
}

// Logistics is a shipment unit bound to a warehouse and product.
type Logistics struct {
	Address           string        `json:"address"`
	ID                uint64        `json:"id"`
	Name              string        `json:"name"`
	Mode              TransportMode `json:"mode"`
	ContactInfo       string        `json:"contactInfo"`
	Status            string        `json:"status"`
	ShipmentCost      uint64        `json:"shipmentCost"`
	ProductID         uint64        `json:"productId"`
	ProductAddress    string        `json:"productAddress"`
	ProductStock      uint64        `json:"productStock"`
	DeliveryConfirmed bool          `json:"deliveryConfirmed"`
	Balance           uint64        `json:"balance"`
	WarehouseID       uint64        `json:"warehouseId"`
	WarehouseAddress  string        `json:"warehouseAddress"`
	Latitude          float64       `json:"latitude"`
	Longitude         float64       `json:"longitude"`
	ShipmentStartedAt int64         `json:"shipmentStartedAt"`
	ShipmentEndedAt   int64         `json:"shipmentEndedAt"`
	Delivered         bool          `json:"delivered"`
	Owner             string        `json:"owner"`
}

// Seller lists received stock for end customers.
type Seller struct {
	Address      string  `json:"address"`
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ProductCount uint64  `json:"productCount"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ContactInfo  string  `json:"contactInfo"`
	RegisteredAt int64   `json:"registeredAt"`
	OrderCount   uint64  `json:"orderCount"`
	Balance      uint64  `json:"balance"`
	Owner        string  `json:"owner"`
}

// SellerStock is the per seller/product listing created when an order is
// received and drained by customer purchases.
type SellerStock struct {
	Address        string `json:"address"`
	SellerAddress  string `json:"sellerAddress"`
	ProductID      uint64 `json:"productId"`
	ProductAddress string `json:"productAddress"`
	Quantity       uint64 `json:"quantity"`
	Price          uint64 `json:"price"`
	CreatedAt      int64  `json:"createdAt"`
}

// Order tracks a seller's stock request against a warehouse through
// PENDING -> ON_THE_WAY -> RECEIVED.
type Order struct {
	Address          string      `json:"address"`
	ID               uint64      `json:"id"`
	ProductID        uint64      `json:"productId"`
	ProductAddress   string      `json:"productAddress"`
	Quantity         uint64      `json:"quantity"`
	WarehouseID      uint64      `json:"warehouseId"`
	WarehouseAddress string      `json:"warehouseAddress"`
	TotalPrice       uint64      `json:"totalPrice"`
	CreatedAt        int64       `json:"createdAt"`
	SellerAddress    string      `json:"sellerAddress"`
	LogisticsID      uint64      `json:"logisticsId"`
	LogisticsAddress string      `json:"logisticsAddress"`
	Status           OrderStatus `json:"status"`
}

// CustomerProduct is the end customer's ownership record, accumulated across
// purchases of the same product.
type CustomerProduct struct {
	Address        string `json:"address"`
	ProductID      uint64 `json:"productId"`
	ProductAddress string `json:"productAddress"`
	Owner          string `json:"owner"`
	Quantity       uint64 `json:"quantity"`
	PurchasedAt    int64  `json:"purchasedAt"`
	SellerAddress  string `json:"sellerAddress"`
}

// Transaction is an append-only ledger entry keyed by the acting user's
// transaction counter. Status is written true on the success path only;
// failed handlers abort before the append.
type Transaction struct {
	Address   string `json:"address"`
	ID        uint64 `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Status    bool   `json:"status"`
}

// PlatformState is the singleton holding the platform authority and fee.
type PlatformState struct {
	Address     string `json:"address"`
	Owner       string `json:"owner"`
	PlatformFee uint64 `json:"platformFee"` // percent, capped at MaxPlatformFee
	Initialized bool   `json:"initialized"`
}

// Wallet is the spendable balance record for one identity. It stands in for
// the native token account: payments debit it, withdrawals and funding
// credit it.
type Wallet struct {
	Address   string `json:"address"`
	Owner     string `json:"owner"`
	Balance   uint64 `json:"balance"`
	CreatedAt int64  `json:"createdAt"`
}

// Enums

type Role string

const (
	RoleFactory   Role = "FACTORY"
	RoleWarehouse Role = "WAREHOUSE"
	RoleSeller    Role = "SELLER"
	RoleInspector Role = "INSPECTOR"
	RoleLogistics Role = "LOGISTICS"
	RoleCustomer  Role = "CUSTOMER"
)

// ParseRole maps a caller-supplied role string onto the closed Role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleFactory, RoleWarehouse, RoleSeller, RoleInspector, RoleLogistics, RoleCustomer:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

type Outcome string

const (
	OutcomePass            Outcome = "PASS"
	OutcomeFail            Outcome = "FAIL"
	OutcomePending         Outcome = "PENDING"
	OutcomeReInspection    Outcome = "RE_INSPECTION"
	OutcomeConditionalPass Outcome = "CONDITIONAL_PASS"
)

// ParseOutcome maps a caller-supplied outcome string onto the closed set.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomePass, OutcomeFail, OutcomePending, OutcomeReInspection, OutcomeConditionalPass:
		return Outcome(s), nil
	default:
		return "", ErrInvalidOutcome
	}
}

type TransportMode string

const (
	ModeTruck TransportMode = "TRUCK"
	ModeTrain TransportMode = "TRAIN"
	ModeShip  TransportMode = "SHIP"
	ModePlane TransportMode = "PLANE"
	ModeDrone TransportMode = "DRONE"
)

// ParseTransportMode maps a caller-supplied mode string onto the closed set.
func ParseTransportMode(s string) (TransportMode, error) {
	switch TransportMode(s) {
	case ModeTruck, ModeTrain, ModeShip, ModePlane, ModeDrone:
		return TransportMode(s), nil
	default:
		return "", ErrInvalidTransportMode
	}
}

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusOnTheWay OrderStatus = "ON_THE_WAY"
	OrderStatusReceived OrderStatus = "RECEIVED"
)

// Logistics status labels mirror the order leg the unit serves.
const (
	LogisticsStatusFree      = "FREE"
	LogisticsStatusOnTheWay  = "ON THE WAY"
	LogisticsStatusDelivered = "DELIVERED"
)

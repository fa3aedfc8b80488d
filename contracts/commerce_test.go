package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainFixture carries the addresses of a custody chain that has already run
// the factory-to-warehouse leg: 100 units produced at price 100, inspected,
// 50 bought into the warehouse, one free logistics unit, one seller.
type chainFixture struct {
	l             *testLedger
	factoryAddr   string
	productAddr   string
	warehouseAddr string
	logisticsAddr string
	sellerAddr    string
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()
	l := newSupplyFixture(t)
	sc := &SupplyChainContract{}
	cc := &CommerceContract{}

	factoryAddr := createFactory(t, l, "Factory 1")
	productAddr := createProduct(t, l, 1, factoryAddr, 100, 100)
	inspectProduct(t, l, productAddr, "PASS", 50)
	warehouseAddr := createWarehouse(t, l, 500)
	fundWallet(t, l, warehouseOwner, 10000)
	require.NoError(t, sc.PurchaseAsWarehouse(l.context(warehouseOwner), warehouseAddr, productAddr, 50))

	require.NoError(t, sc.CreateLogistics(l.context(logisticsOwner),
		"Fleet Truck 1", "TRUCK", "+49 30 7654321", 52.52, 13.40, warehouseAddr))
	logisticsAddr := deriveAddress(tagLogistics, []byte(userAddress(logisticsOwner)), 1)

	require.NoError(t, cc.CreateSeller(l.context(sellerOwner),
		"Corner Shop", "retail outlet", 40.71, -74.0, "+1 212 555 0100"))
	sellerAddr := deriveAddress(tagSeller, []byte(userAddress(sellerOwner)), 1)

	return &chainFixture{
		l:             l,
		factoryAddr:   factoryAddr,
		productAddr:   productAddr,
		warehouseAddr: warehouseAddr,
		logisticsAddr: logisticsAddr,
		sellerAddr:    sellerAddr,
	}
}

func (f *chainFixture) createOrder(t *testing.T, stock uint64) string {
	t.Helper()
	cc := &CommerceContract{}
	require.NoError(t, cc.CreateOrder(f.l.context(sellerOwner), f.sellerAddr, f.warehouseAddr, f.productAddr, stock))
	seller, err := cc.GetSeller(f.l.context(sellerOwner), f.sellerAddr)
	require.NoError(t, err)
	return deriveAddress(tagOrder, []byte(f.sellerAddr), seller.OrderCount)
}

func TestCreateSellerRoleGated(t *testing.T) {
	l := newSupplyFixture(t)
	cc := &CommerceContract{}

	err := cc.CreateSeller(l.context(factoryOwner), "Shop", "d", 0, 0, "c")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateOrderPending(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}

	orderAddr := f.createOrder(t, 20)

	order, err := cc.GetOrder(f.l.context(sellerOwner), orderAddr)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, uint64(20), order.Quantity)
	assert.Equal(t, uint64(20*100), order.TotalPrice)
	assert.Empty(t, order.LogisticsAddress)

	// Stock does not move at order time.
	warehouse, err := (&SupplyChainContract{}).GetWarehouse(f.l.context(sellerOwner), f.warehouseAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), warehouse.ProductCount)
}

func TestCreateOrderBounds(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}

	err := cc.CreateOrder(f.l.context(sellerOwner), f.sellerAddr, f.warehouseAddr, f.productAddr, 51)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	err = cc.CreateOrder(f.l.context(sellerOwner), f.sellerAddr, f.warehouseAddr, f.productAddr, 0)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Another user's seller cannot be used.
	err = cc.CreateOrder(f.l.context(customerOwner), f.sellerAddr, f.warehouseAddr, f.productAddr, 5)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDispatchLogistics(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}
	sc := &SupplyChainContract{}

	orderAddr := f.createOrder(t, 20)

	require.NoError(t, cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300))

	order, err := cc.GetOrder(f.l.context(logisticsOwner), orderAddr)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusOnTheWay, order.Status)
	assert.Equal(t, f.logisticsAddr, order.LogisticsAddress)

	logistics, err := sc.GetLogistics(f.l.context(logisticsOwner), f.logisticsAddr)
	require.NoError(t, err)
	assert.Equal(t, LogisticsStatusOnTheWay, logistics.Status)
	assert.Equal(t, uint64(300), logistics.ShipmentCost)
	assert.Equal(t, uint64(20), logistics.ProductStock)
	assert.NotZero(t, logistics.ShipmentStartedAt)

	// A unit already on the way is no longer free.
	secondOrder := f.createOrder(t, 5)
	err = cc.DispatchLogistics(f.l.context(logisticsOwner), secondOrder, f.logisticsAddr, 100)
	assert.ErrorIs(t, err, ErrLogisticsNotFree)
}

func TestDispatchLogisticsGuards(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}

	orderAddr := f.createOrder(t, 20)

	// Only the unit's owner may dispatch it.
	err := cc.DispatchLogistics(f.l.context(sellerOwner), orderAddr, f.logisticsAddr, 300)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300))

	// A dispatched order cannot be dispatched again.
	err = cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300)
	assert.ErrorIs(t, err, ErrOrderNotReady)
}

func TestDispatchLogisticsRejectsStaleProductBinding(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}
	sc := &SupplyChainContract{}

	// The warehouse moves on to a second product; the fixture's logistics
	// unit still carries the first one.
	secondProductAddr := createProduct(t, f.l, 1, f.factoryAddr, 100, 50)
	inspectProduct(t, f.l, secondProductAddr, "PASS", 50)
	require.NoError(t, sc.PurchaseAsWarehouse(f.l.context(warehouseOwner), f.warehouseAddr, secondProductAddr, 10))

	require.NoError(t, cc.CreateOrder(f.l.context(sellerOwner), f.sellerAddr, f.warehouseAddr, secondProductAddr, 5))
	seller, err := cc.GetSeller(f.l.context(sellerOwner), f.sellerAddr)
	require.NoError(t, err)
	orderAddr := deriveAddress(tagOrder, []byte(f.sellerAddr), seller.OrderCount)

	err = cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300)
	assert.ErrorIs(t, err, ErrInvalidLogistics)
}

func TestReceiveOrderAsSeller(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}
	sc := &SupplyChainContract{}

	orderAddr := f.createOrder(t, 20)

	// Receipt before dispatch is rejected.
	err := cc.ReceiveOrderAsSeller(f.l.context(sellerOwner), orderAddr, 150)
	assert.ErrorIs(t, err, ErrOrderNotReady)

	require.NoError(t, cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300))

	fundWallet(t, f.l, sellerOwner, 5000)
	require.NoError(t, cc.ReceiveOrderAsSeller(f.l.context(sellerOwner), orderAddr, 150))

	order, err := cc.GetOrder(f.l.context(sellerOwner), orderAddr)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusReceived, order.Status)

	// Warehouse released the units and took the sale price.
	warehouse, err := sc.GetWarehouse(f.l.context(sellerOwner), f.warehouseAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), warehouse.ProductCount)
	assert.Equal(t, uint64(2000), warehouse.Balance)

	// Logistics completed and holds its shipment cost.
	logistics, err := sc.GetLogistics(f.l.context(sellerOwner), f.logisticsAddr)
	require.NoError(t, err)
	assert.True(t, logistics.Delivered)
	assert.True(t, logistics.DeliveryConfirmed)
	assert.Equal(t, LogisticsStatusDelivered, logistics.Status)
	assert.Equal(t, uint64(300), logistics.Balance)
	assert.NotZero(t, logistics.ShipmentEndedAt)

	// Seller listed the stock at the resale price and paid goods + shipping.
	listing, err := cc.GetSellerStock(f.l.context(sellerOwner), f.sellerAddr, order.ProductAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), listing.Quantity)
	assert.Equal(t, uint64(150), listing.Price)
	assert.Equal(t, uint64(5000-2000-300), walletBalance(t, f.l, sellerOwner))
}

func TestPurchaseAsCustomerExhaustsStock(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}

	orderAddr := f.createOrder(t, 20)
	require.NoError(t, cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300))
	fundWallet(t, f.l, sellerOwner, 5000)
	require.NoError(t, cc.ReceiveOrderAsSeller(f.l.context(sellerOwner), orderAddr, 150))

	fundWallet(t, f.l, customerOwner, 10000)
	require.NoError(t, cc.PurchaseAsCustomer(f.l.context(customerOwner), f.sellerAddr, f.productAddr, 20))

	listing, err := cc.GetSellerStock(f.l.context(customerOwner), f.sellerAddr, f.productAddr)
	require.NoError(t, err)
	assert.Zero(t, listing.Quantity)

	seller, err := cc.GetSeller(f.l.context(customerOwner), f.sellerAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(20*150), seller.Balance)
	assert.Equal(t, uint64(10000-3000), walletBalance(t, f.l, customerOwner))

	owned, err := cc.ListMyProducts(f.l.context(customerOwner))
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, uint64(20), owned[0].Quantity)

	// The listing is empty now.
	err = cc.PurchaseAsCustomer(f.l.context(customerOwner), f.sellerAddr, f.productAddr, 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestPurchaseAsCustomerAccumulates(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}

	orderAddr := f.createOrder(t, 20)
	require.NoError(t, cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300))
	fundWallet(t, f.l, sellerOwner, 5000)
	require.NoError(t, cc.ReceiveOrderAsSeller(f.l.context(sellerOwner), orderAddr, 150))

	fundWallet(t, f.l, customerOwner, 10000)
	require.NoError(t, cc.PurchaseAsCustomer(f.l.context(customerOwner), f.sellerAddr, f.productAddr, 3))
	require.NoError(t, cc.PurchaseAsCustomer(f.l.context(customerOwner), f.sellerAddr, f.productAddr, 4))

	owned, err := cc.ListMyProducts(f.l.context(customerOwner))
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, uint64(7), owned[0].Quantity)
}

func TestPurchaseAsCustomerDistinguishesSameSequenceProducts(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}

	// A second factory whose first product shares sequence id 1 with the
	// product the seller will list.
	secondFactoryAddr := createFactory(t, f.l, "Factory 2")
	otherProductAddr := createProduct(t, f.l, 2, secondFactoryAddr, 100, 100)

	orderAddr := f.createOrder(t, 20)
	require.NoError(t, cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300))
	fundWallet(t, f.l, sellerOwner, 5000)
	require.NoError(t, cc.ReceiveOrderAsSeller(f.l.context(sellerOwner), orderAddr, 150))

	fundWallet(t, f.l, customerOwner, 10000)

	// The never-listed product must not resolve onto the listed one just
	// because both carry product id 1.
	err := cc.PurchaseAsCustomer(f.l.context(customerOwner), f.sellerAddr, otherProductAddr, 5)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	listing, err := cc.GetSellerStock(f.l.context(customerOwner), f.sellerAddr, f.productAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), listing.Quantity)
	assert.Equal(t, uint64(10000), walletBalance(t, f.l, customerOwner))

	_, err = cc.GetSellerStock(f.l.context(customerOwner), f.sellerAddr, otherProductAddr)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

// TestEndToEndCustodyChain walks the full happy path: registration through
// production, inspection, warehouse custody, order, shipment, receipt and
// the final retail purchase.
func TestEndToEndCustodyChain(t *testing.T) {
	f := newChainFixture(t)
	cc := &CommerceContract{}
	sc := &SupplyChainContract{}

	// Factory leg already ran in the fixture: 100 produced, 50 in warehouse.
	product, err := sc.GetProduct(f.l.context(factoryOwner), f.productAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), product.Stock)

	factory, err := sc.GetFactory(f.l.context(factoryOwner), f.factoryAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(50*100), factory.Balance)

	orderAddr := f.createOrder(t, 20)
	require.NoError(t, cc.DispatchLogistics(f.l.context(logisticsOwner), orderAddr, f.logisticsAddr, 300))
	fundWallet(t, f.l, sellerOwner, 5000)
	require.NoError(t, cc.ReceiveOrderAsSeller(f.l.context(sellerOwner), orderAddr, 150))

	fundWallet(t, f.l, customerOwner, 10000)
	require.NoError(t, cc.PurchaseAsCustomer(f.l.context(customerOwner), f.sellerAddr, f.productAddr, 5))

	// Every escrow balance along the chain reflects its leg of the flow.
	factory, err = sc.GetFactory(f.l.context(factoryOwner), f.factoryAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), factory.Balance)

	warehouse, err := sc.GetWarehouse(f.l.context(factoryOwner), f.warehouseAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), warehouse.Balance)

	logistics, err := sc.GetLogistics(f.l.context(factoryOwner), f.logisticsAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), logistics.Balance)

	seller, err := cc.GetSeller(f.l.context(factoryOwner), f.sellerAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5*150), seller.Balance)
}

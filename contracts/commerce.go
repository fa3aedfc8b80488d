package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// CommerceContract handles the warehouse-to-customer leg of the custody
// chain: sellers, orders, logistics assignment, receipt and retail purchases.
type CommerceContract struct {
	contractapi.Contract
}

// CreateSeller registers a storefront for a SELLER-role user.
func (c *CommerceContract) CreateSeller(ctx contractapi.TransactionContextInterface,
	name string, description string, latitude float64, longitude float64, contactInfo string) error {

	user, err := requireRole(ctx, RoleSeller)
	if err != nil {
		return err
	}

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateDescription(description); err != nil {
		return err
	}
	if err := validateCoordinates(latitude, longitude); err != nil {
		return err
	}
	if err := validateContactInfo(contactInfo); err != nil {
		return err
	}

	seq, err := nextSeq(user.SellerCount)
	if err != nil {
		return err
	}

	seller := Seller{
		Address:      deriveAddress(tagSeller, []byte(user.Address), seq),
		ID:           seq,
		Name:         name,
		Description:  description,
		Latitude:     latitude,
		Longitude:    longitude,
		ContactInfo:  contactInfo,
		RegisteredAt: time.Now().Unix(),
		Owner:        user.Owner,
	}
	if err := putJSON(ctx, stateKey(tagSeller, seller.Address), &seller); err != nil {
		return err
	}

	user.SellerCount = seq
	if err := saveUser(ctx, user); err != nil {
		return err
	}

	sellerJSON, _ := json.Marshal(seller)
	ctx.GetStub().SetEvent("SellerCreated", sellerJSON)

	return nil
}

// CreateOrder opens a stock request from a seller against a warehouse. No
// stock or funds move yet; both settle when the delivery is received.
func (c *CommerceContract) CreateOrder(ctx contractapi.TransactionContextInterface,
	sellerAddress string, warehouseAddress string, productAddress string, stock uint64) error {

	user, err := requireRole(ctx, RoleSeller)
	if err != nil {
		return err
	}

	seller, err := c.getOwnedSeller(ctx, user, sellerAddress)
	if err != nil {
		return err
	}

	warehouse, err := getWarehouse(ctx, warehouseAddress)
	if err != nil {
		return err
	}
	if warehouse.ProductAddress != productAddress {
		return fmt.Errorf("%w: warehouse does not hold product %s", ErrInvalidProduct, productAddress)
	}
	if stock == 0 || warehouse.ProductCount < stock {
		return fmt.Errorf("%w: warehouse holds %d, requested %d", ErrInsufficientStock, warehouse.ProductCount, stock)
	}

	product, err := getProduct(ctx, productAddress)
	if err != nil {
		return err
	}

	total, err := mulU64(product.Price, stock)
	if err != nil {
		return err
	}

	seq, err := nextSeq(seller.OrderCount)
	if err != nil {
		return err
	}

	order := Order{
		Address:          deriveAddress(tagOrder, []byte(seller.Address), seq),
		ID:               seq,
		ProductID:        product.ID,
		ProductAddress:   product.Address,
		Quantity:         stock,
		WarehouseID:      warehouse.ID,
		WarehouseAddress: warehouse.Address,
		TotalPrice:       total,
		CreatedAt:        time.Now().Unix(),
		SellerAddress:    seller.Address,
		Status:           OrderStatusPending,
	}
	if err := putJSON(ctx, stateKey(tagOrder, order.Address), &order); err != nil {
		return err
	}

	seller.OrderCount = seq
	if err := putJSON(ctx, stateKey(tagSeller, seller.Address), seller); err != nil {
		return err
	}

	orderJSON, _ := json.Marshal(order)
	ctx.GetStub().SetEvent("OrderCreated", orderJSON)

	return nil
}

// DispatchLogistics assigns a free shipment unit to a pending order and puts
// it on the way.
func (c *CommerceContract) DispatchLogistics(ctx contractapi.TransactionContextInterface,
	orderAddress string, logisticsAddress string, shippingCost uint64) error {

	user, err := requireRole(ctx, RoleLogistics)
	if err != nil {
		return err
	}

	order, err := c.GetOrder(ctx, orderAddress)
	if err != nil {
		return err
	}
	if order.Status != OrderStatusPending {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotReady, order.Address, order.Status)
	}

	logistics, err := getLogistics(ctx, logisticsAddress)
	if err != nil {
		return err
	}
	if logistics.Owner != user.Owner {
		return fmt.Errorf("%w: logistics %s not owned by caller", ErrUnauthorized, logisticsAddress)
	}
	// A unit is free only before its first paid delivery.
	if logistics.Balance != 0 || logistics.Delivered || logistics.Status != LogisticsStatusFree {
		return fmt.Errorf("%w: %s", ErrLogisticsNotFree, logisticsAddress)
	}
	if logistics.WarehouseAddress != order.WarehouseAddress {
		return fmt.Errorf("%w: unit serves a different warehouse", ErrInvalidLogistics)
	}
	if logistics.ProductAddress != order.ProductAddress {
		return fmt.Errorf("%w: unit is bound to a different product", ErrInvalidLogistics)
	}

	now := time.Now().Unix()
	logistics.Status = LogisticsStatusOnTheWay
	logistics.ShipmentCost = shippingCost
	logistics.ProductStock = order.Quantity
	logistics.ShipmentStartedAt = now

	order.Status = OrderStatusOnTheWay
	order.LogisticsID = logistics.ID
	order.LogisticsAddress = logistics.Address

	if err := putJSON(ctx, stateKey(tagLogistics, logistics.Address), logistics); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagOrder, order.Address), order); err != nil {
		return err
	}

	orderJSON, _ := json.Marshal(order)
	ctx.GetStub().SetEvent("LogisticsDispatched", orderJSON)

	return nil
}

// ReceiveOrderAsSeller settles a delivered order: the seller's wallet pays
// the warehouse for the goods and the logistics unit for the shipment, the
// warehouse releases the units and the seller lists them at a resale price.
func (c *CommerceContract) ReceiveOrderAsSeller(ctx contractapi.TransactionContextInterface,
	orderAddress string, resalePrice uint64) error {

	user, err := requireRole(ctx, RoleSeller)
	if err != nil {
		return err
	}

	order, err := c.GetOrder(ctx, orderAddress)
	if err != nil {
		return err
	}
	if order.Status != OrderStatusOnTheWay {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotReady, order.Address, order.Status)
	}

	seller, err := c.getOwnedSeller(ctx, user, order.SellerAddress)
	if err != nil {
		return err
	}

	logistics, err := getLogistics(ctx, order.LogisticsAddress)
	if err != nil {
		return err
	}
	warehouse, err := getWarehouse(ctx, order.WarehouseAddress)
	if err != nil {
		return err
	}
	if warehouse.ProductCount < order.Quantity {
		return fmt.Errorf("%w: warehouse holds %d, order needs %d", ErrInsufficientStock, warehouse.ProductCount, order.Quantity)
	}

	due, err := addU64(order.TotalPrice, logistics.ShipmentCost)
	if err != nil {
		return err
	}
	wallet, err := loadWallet(ctx, user.Owner)
	if err != nil {
		return err
	}
	if err := debitWallet(wallet, due); err != nil {
		return err
	}

	warehouseBalance, err := addU64(warehouse.Balance, order.TotalPrice)
	if err != nil {
		return err
	}
	logisticsBalance, err := addU64(logistics.Balance, logistics.ShipmentCost)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	warehouse.Balance = warehouseBalance
	warehouse.ProductCount -= order.Quantity

	logistics.Balance = logisticsBalance
	logistics.Delivered = true
	logistics.DeliveryConfirmed = true
	logistics.Status = LogisticsStatusDelivered
	logistics.ShipmentEndedAt = now

	order.Status = OrderStatusReceived

	stockAddr := sellerStockAddress(seller.Address, order.ProductAddress)
	var listing SellerStock
	found, err := getJSON(ctx, stateKey(tagSellerStock, stockAddr), &listing)
	if err != nil {
		return err
	}
	if !found {
		listing = SellerStock{
			Address:        stockAddr,
			SellerAddress:  seller.Address,
			ProductID:      order.ProductID,
			ProductAddress: order.ProductAddress,
			CreatedAt:      now,
		}
	}
	quantity, err := addU64(listing.Quantity, order.Quantity)
	if err != nil {
		return err
	}
	listing.Quantity = quantity
	listing.Price = resalePrice

	sellerCount, err := addU64(seller.ProductCount, order.Quantity)
	if err != nil {
		return err
	}
	seller.ProductCount = sellerCount

	if err := saveWallet(ctx, wallet); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagWarehouse, warehouse.Address), warehouse); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagLogistics, logistics.Address), logistics); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagOrder, order.Address), order); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagSellerStock, listing.Address), &listing); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagSeller, seller.Address), seller); err != nil {
		return err
	}

	if _, err := recordTransaction(ctx, user, wallet.Address, warehouse.Address, order.TotalPrice); err != nil {
		return err
	}
	if _, err := recordTransaction(ctx, user, wallet.Address, logistics.Address, logistics.ShipmentCost); err != nil {
		return err
	}
	if err := saveUser(ctx, user); err != nil {
		return err
	}

	orderJSON, _ := json.Marshal(order)
	ctx.GetStub().SetEvent("OrderReceived", orderJSON)

	return nil
}

// PurchaseAsCustomer buys listed units from a seller. The buyer's wallet pays
// the seller balance and an ownership record accumulates per product.
func (c *CommerceContract) PurchaseAsCustomer(ctx contractapi.TransactionContextInterface,
	sellerAddress string, productAddress string, stock uint64) error {

	user, err := requireRole(ctx, RoleCustomer)
	if err != nil {
		return err
	}

	seller, err := c.GetSeller(ctx, sellerAddress)
	if err != nil {
		return err
	}
	product, err := getProduct(ctx, productAddress)
	if err != nil {
		return err
	}

	stockAddr := sellerStockAddress(seller.Address, product.Address)
	var listing SellerStock
	found, err := getJSON(ctx, stateKey(tagSellerStock, stockAddr), &listing)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: seller does not list product %s", ErrInvalidProduct, productAddress)
	}
	if listing.ProductAddress != product.Address {
		return fmt.Errorf("%w: listing covers %s", ErrInvalidProduct, listing.ProductAddress)
	}
	if stock == 0 || listing.Quantity < stock {
		return fmt.Errorf("%w: listing holds %d, requested %d", ErrInsufficientStock, listing.Quantity, stock)
	}

	total, err := mulU64(listing.Price, stock)
	if err != nil {
		return err
	}

	wallet, err := loadWallet(ctx, user.Owner)
	if err != nil {
		return err
	}
	if err := debitWallet(wallet, total); err != nil {
		return err
	}

	sellerBalance, err := addU64(seller.Balance, total)
	if err != nil {
		return err
	}
	seller.Balance = sellerBalance
	listing.Quantity -= stock

	ownedAddr := customerProductAddress(user.Address, product.Address)
	var owned CustomerProduct
	foundOwned, err := getJSON(ctx, stateKey(tagCustomerProduct, ownedAddr), &owned)
	if err != nil {
		return err
	}
	if !foundOwned {
		owned = CustomerProduct{
			Address:        ownedAddr,
			ProductID:      product.ID,
			ProductAddress: product.Address,
			Owner:          user.Owner,
			SellerAddress:  seller.Address,
		}
	}
	quantity, err := addU64(owned.Quantity, stock)
	if err != nil {
		return err
	}
	owned.Quantity = quantity
	owned.PurchasedAt = time.Now().Unix()

	if err := saveWallet(ctx, wallet); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagSeller, seller.Address), seller); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagSellerStock, listing.Address), &listing); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagCustomerProduct, owned.Address), &owned); err != nil {
		return err
	}

	if _, err := recordTransaction(ctx, user, wallet.Address, seller.Address, total); err != nil {
		return err
	}
	return saveUser(ctx, user)
}

// GetSeller retrieves a seller by derived address.
func (c *CommerceContract) GetSeller(ctx contractapi.TransactionContextInterface, address string) (*Seller, error) {
	var seller Seller
	found, err := getJSON(ctx, stateKey(tagSeller, address), &seller)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeller, address)
	}
	return &seller, nil
}

// GetOrder retrieves an order by derived address.
func (c *CommerceContract) GetOrder(ctx contractapi.TransactionContextInterface, address string) (*Order, error) {
	var order Order
	found, err := getJSON(ctx, stateKey(tagOrder, address), &order)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, address)
	}
	return &order, nil
}

// GetSellerStock retrieves one seller's listing for a product.
func (c *CommerceContract) GetSellerStock(ctx contractapi.TransactionContextInterface,
	sellerAddress string, productAddress string) (*SellerStock, error) {

	addr := sellerStockAddress(sellerAddress, productAddress)
	var listing SellerStock
	found, err := getJSON(ctx, stateKey(tagSellerStock, addr), &listing)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: no listing for product %s", ErrInvalidProduct, productAddress)
	}
	return &listing, nil
}

// ListOrdersBySeller returns every order a seller has opened.
func (c *CommerceContract) ListOrdersBySeller(ctx contractapi.TransactionContextInterface, sellerAddress string) ([]*Order, error) {
	var orders []*Order
	err := forEachState(ctx, tagOrder, func(value []byte) error {
		var order Order
		if err := json.Unmarshal(value, &order); err != nil {
			return err
		}
		if order.SellerAddress == sellerAddress {
			orders = append(orders, &order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListSellerStock returns a seller's current listings.
func (c *CommerceContract) ListSellerStock(ctx contractapi.TransactionContextInterface, sellerAddress string) ([]*SellerStock, error) {
	var listings []*SellerStock
	err := forEachState(ctx, tagSellerStock, func(value []byte) error {
		var listing SellerStock
		if err := json.Unmarshal(value, &listing); err != nil {
			return err
		}
		if listing.SellerAddress == sellerAddress {
			listings = append(listings, &listing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ListMyProducts returns the caller's accumulated ownership records.
func (c *CommerceContract) ListMyProducts(ctx contractapi.TransactionContextInterface) ([]*CustomerProduct, error) {
	identity, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	var owned []*CustomerProduct
	err = forEachState(ctx, tagCustomerProduct, func(value []byte) error {
		var record CustomerProduct
		if err := json.Unmarshal(value, &record); err != nil {
			return err
		}
		if record.Owner == identity {
			owned = append(owned, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owned, nil
}

// getOwnedSeller re-derives the seller address from the caller's PDA and the
// stored sequence id, rejecting claims over another user's storefront.
func (c *CommerceContract) getOwnedSeller(ctx contractapi.TransactionContextInterface, user *User, sellerAddress string) (*Seller, error) {
	seller, err := c.GetSeller(ctx, sellerAddress)
	if err != nil {
		return nil, err
	}
	if seller.Owner != user.Owner {
		return nil, fmt.Errorf("%w: seller %s not owned by caller", ErrUnauthorized, sellerAddress)
	}
	if deriveAddress(tagSeller, []byte(user.Address), seller.ID) != seller.Address {
		return nil, fmt.Errorf("%w: address mismatch", ErrInvalidSeller)
	}
	return seller, nil
}

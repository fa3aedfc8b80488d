package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SupplyChainContract handles the factory-to-warehouse leg of the custody
// chain: factories, products, inspections and warehouse purchases.
type SupplyChainContract struct {
	contractapi.Contract
}

// CreateFactory registers a production site for a FACTORY-role user. The new
// factory's address derives from the user's PDA and the bumped FactoryCount,
// so creation order and sequence ids always agree.
func (s *SupplyChainContract) CreateFactory(ctx contractapi.TransactionContextInterface,
	name string, description string, latitude float64, longitude float64, contactInfo string) error {

	user, err := requireRole(ctx, RoleFactory)
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

	seq, err := nextSeq(user.FactoryCount)
	if err != nil {
		return err
	}

	factory := Factory{
		Address:     deriveAddress(tagFactory, []byte(user.Address), seq),
		ID:          seq,
		Name:        name,
		Description: description,
		Owner:       user.Owner,
		CreatedAt:   time.Now().Unix(),
		Latitude:    latitude,
		Longitude:   longitude,
		ContactInfo: contactInfo,
	}
	if err := putJSON(ctx, stateKey(tagFactory, factory.Address), &factory); err != nil {
		return err
	}

	user.FactoryCount = seq
	if err := saveUser(ctx, user); err != nil {
		return err
	}

	factoryJSON, _ := json.Marshal(factory)
	ctx.GetStub().SetEvent("FactoryCreated", factoryJSON)

	return nil
}

// CreateProduct adds a product to one of the caller's factories. Quality and
// inspection-fee flags start false and only dedicated handlers flip them.
func (s *SupplyChainContract) CreateProduct(ctx contractapi.TransactionContextInterface,
	factoryID uint64, name string, description string, imageURL string, batchNo string,
	price uint64, rawMaterialCost uint64, stock uint64, mrp uint64) error {

	user, err := requireRole(ctx, RoleFactory)
	if err != nil {
		return err
	}

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateDescription(description); err != nil {
		return err
	}

	factory, err := s.getOwnedFactory(ctx, user, factoryID)
	if err != nil {
		return err
	}

	seq, err := nextSeq(factory.ProductCount)
	if err != nil {
		return err
	}
	userSeq, err := nextSeq(user.ProductCount)
	if err != nil {
		return err
	}

	product := Product{
		Address:         deriveAddress(tagProduct, []byte(factory.Address), seq),
		ID:              seq,
		FactoryID:       factory.ID,
		FactoryAddress:  factory.Address,
		Name:            name,
		Description:     description,
		BatchNo:         batchNo,
		ImageURL:        imageURL,
		Price:           price,
		RawMaterialCost: rawMaterialCost,
		MRP:             mrp,
		Stock:           stock,
		CreatedAt:       time.Now().Unix(),
	}
	if err := putJSON(ctx, stateKey(tagProduct, product.Address), &product); err != nil {
		return err
	}

	factory.ProductCount = seq
	if err := putJSON(ctx, stateKey(tagFactory, factory.Address), factory); err != nil {
		return err
	}

	user.ProductCount = userSeq
	if err := saveUser(ctx, user); err != nil {
		return err
	}

	productJSON, _ := json.Marshal(product)
	ctx.GetStub().SetEvent("ProductCreated", productJSON)

	return nil
}

// InspectProduct records an inspection outcome against a product and marks it
// quality checked. The flag is one-way: a later inspection writes a fresh
// record and repoints the product, it never clears the flag.
func (s *SupplyChainContract) InspectProduct(ctx contractapi.TransactionContextInterface,
	name string, latitude float64, longitude float64, productAddress string,
	outcome string, notes string, feePerProduct uint64) error {

	user, err := requireRole(ctx, RoleInspector)
	if err != nil {
		return err
	}

	if err := validateName(name); err != nil {
		return err
	}
	if err := validateCoordinates(latitude, longitude); err != nil {
		return err
	}
	if err := validateNotes(notes); err != nil {
		return err
	}
	parsedOutcome, err := ParseOutcome(outcome)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	product, err := s.GetProduct(ctx, productAddress)
	if err != nil {
		return err
	}

	seq, err := nextSeq(user.InspectorCount)
	if err != nil {
		return err
	}

	inspection := Inspection{
		Address:        deriveAddress(tagInspection, []byte(user.Address), seq),
		ID:             seq,
		Name:           name,
		Latitude:       latitude,
		Longitude:      longitude,
		ProductID:      product.ID,
		ProductAddress: product.Address,
		Outcome:        parsedOutcome,
		Notes:          notes,
		InspectedAt:    time.Now().Unix(),
		FeePerProduct:  feePerProduct,
		Owner:          user.Owner,
	}
	if err := putJSON(ctx, stateKey(tagInspection, inspection.Address), &inspection); err != nil {
		return err
	}

	product.QualityChecked = true
	product.InspectionID = inspection.ID
	product.InspectorAddress = inspection.Address
	if err := putJSON(ctx, stateKey(tagProduct, product.Address), product); err != nil {
		return err
	}

	user.InspectorCount = seq
	if err := saveUser(ctx, user); err != nil {
		return err
	}

	inspectionJSON, _ := json.Marshal(inspection)
	ctx.GetStub().SetEvent("ProductInspected", inspectionJSON)

	return nil
}

// PayInspectionFee settles the inspection fee from the factory owner's wallet
// into the inspection record's accrued balance.
func (s *SupplyChainContract) PayInspectionFee(ctx contractapi.TransactionContextInterface,
	productAddress string) error {

	user, err := requireRole(ctx, RoleFactory)
	if err != nil {
		return err
	}

	product, err := s.GetProduct(ctx, productAddress)
	if err != nil {
		return err
	}
	if !product.QualityChecked {
		return ErrNotQualityChecked
	}
	if product.InspectionFeePaid {
		return ErrInspectionFeePaid
	}

	inspection, err := s.GetInspection(ctx, product.InspectorAddress)
	if err != nil {
		return err
	}
	if inspection.ProductAddress != product.Address {
		return fmt.Errorf("%w: inspection %s does not cover product %s", ErrInvalidInspector, inspection.Address, product.Address)
	}

	wallet, err := loadWallet(ctx, user.Owner)
	if err != nil {
		return err
	}
	if err := debitWallet(wallet, inspection.FeePerProduct); err != nil {
		return err
	}

	balance, err := addU64(inspection.Balance, inspection.FeePerProduct)
	if err != nil {
		return err
	}
	inspection.Balance = balance
	product.InspectionFeePaid = true

	if err := saveWallet(ctx, wallet); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagInspection, inspection.Address), inspection); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagProduct, product.Address), product); err != nil {
		return err
	}

	if _, err := recordTransaction(ctx, user, wallet.Address, inspection.Address, inspection.FeePerProduct); err != nil {
		return err
	}
	return saveUser(ctx, user)
}

// CreateWarehouse registers a storage site for a WAREHOUSE-role user.
func (s *SupplyChainContract) CreateWarehouse(ctx contractapi.TransactionContextInterface,
	name string, description string, latitude float64, longitude float64,
	contactInfo string, warehouseSize uint64) error {

	user, err := requireRole(ctx, RoleWarehouse)
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

	seq, err := nextSeq(user.WarehouseCount)
	if err != nil {
		return err
	}

	warehouse := Warehouse{
		Address:       deriveAddress(tagWarehouse, []byte(user.Address), seq),
		ID:            seq,
		CreatedAt:     time.Now().Unix(),
		Name:          name,
		Description:   description,
		Latitude:      latitude,
		Longitude:     longitude,
		ContactInfo:   contactInfo,
		Owner:         user.Owner,
		WarehouseSize: warehouseSize,
	}
	if err := putJSON(ctx, stateKey(tagWarehouse, warehouse.Address), &warehouse); err != nil {
		return err
	}

	user.WarehouseCount = seq
	if err := saveUser(ctx, user); err != nil {
		return err
	}

	warehouseJSON, _ := json.Marshal(warehouse)
	ctx.GetStub().SetEvent("WarehouseCreated", warehouseJSON)

	return nil
}

// PurchaseAsWarehouse buys quality-checked stock from a factory. Stock moves
// off the product, the sale price lands on the factory balance and the
// warehouse takes custody of the units, all in one invocation.
func (s *SupplyChainContract) PurchaseAsWarehouse(ctx contractapi.TransactionContextInterface,
	warehouseAddress string, productAddress string, stock uint64) error {

	user, err := requireRole(ctx, RoleWarehouse)
	if err != nil {
		return err
	}

	warehouse, err := s.getOwnedWarehouse(ctx, user, warehouseAddress)
	if err != nil {
		return err
	}

	product, err := s.GetProduct(ctx, productAddress)
	if err != nil {
		return err
	}
	if !product.QualityChecked {
		return ErrNotQualityChecked
	}
	if stock == 0 || product.Stock < stock {
		return fmt.Errorf("%w: product holds %d, requested %d", ErrInsufficientStock, product.Stock, stock)
	}

	held, err := addU64(warehouse.ProductCount, stock)
	if err != nil {
		return err
	}
	if held > warehouse.WarehouseSize {
		return fmt.Errorf("%w: capacity %d, would hold %d", ErrWarehouseFull, warehouse.WarehouseSize, held)
	}

	total, err := mulU64(product.Price, stock)
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

	factory, err := getFactory(ctx, product.FactoryAddress)
	if err != nil {
		return err
	}

	balance, err := addU64(factory.Balance, total)
	if err != nil {
		return err
	}
	factory.Balance = balance
	product.Stock -= stock
	warehouse.ProductCount = held
	warehouse.ProductID = product.ID
	warehouse.ProductAddress = product.Address
	warehouse.FactoryID = factory.ID

	if err := saveWallet(ctx, wallet); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagFactory, factory.Address), factory); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagProduct, product.Address), product); err != nil {
		return err
	}
	if err := putJSON(ctx, stateKey(tagWarehouse, warehouse.Address), warehouse); err != nil {
		return err
	}

	if _, err := recordTransaction(ctx, user, wallet.Address, factory.Address, total); err != nil {
		return err
	}
	return saveUser(ctx, user)
}

// CreateLogistics registers a shipment unit against a warehouse and the
// product it currently holds.
func (s *SupplyChainContract) CreateLogistics(ctx contractapi.TransactionContextInterface,
	name string, mode string, contactInfo string, latitude float64, longitude float64,
	warehouseAddress string) error {

	user, err := requireRole(ctx, RoleLogistics)
	if err != nil {
		return err
	}

	if err := validateName(name); err != nil {
		return err
	}
	parsedMode, err := ParseTransportMode(mode)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTransportMode, mode)
	}
	if err := validateContactInfo(contactInfo); err != nil {
		return err
	}
	if err := validateCoordinates(latitude, longitude); err != nil {
		return err
	}

	warehouse, err := s.GetWarehouse(ctx, warehouseAddress)
	if err != nil {
		return err
	}

	seq, err := nextSeq(user.LogisticsCount)
	if err != nil {
		return err
	}
	warehouseSeq, err := nextSeq(warehouse.LogisticsCount)
	if err != nil {
		return err
	}

	logistics := Logistics{
		Address:          deriveAddress(tagLogistics, []byte(user.Address), seq),
		ID:               seq,
		Name:             name,
		Mode:             parsedMode,
		ContactInfo:      contactInfo,
		Status:           LogisticsStatusFree,
		ProductID:        warehouse.ProductID,
		ProductAddress:   warehouse.ProductAddress,
		WarehouseID:      warehouse.ID,
		WarehouseAddress: warehouse.Address,
		Latitude:         latitude,
		Longitude:        longitude,
		Owner:            user.Owner,
	}
	if err := putJSON(ctx, stateKey(tagLogistics, logistics.Address), &logistics); err != nil {
		return err
	}

	warehouse.LogisticsCount = warehouseSeq
	if err := putJSON(ctx, stateKey(tagWarehouse, warehouse.Address), warehouse); err != nil {
		return err
	}

	user.LogisticsCount = seq
	if err := saveUser(ctx, user); err != nil {
		return err
	}

	logisticsJSON, _ := json.Marshal(logistics)
	ctx.GetStub().SetEvent("LogisticsCreated", logisticsJSON)

	return nil
}

// GetProduct retrieves a product by derived address.
func (s *SupplyChainContract) GetProduct(ctx contractapi.TransactionContextInterface, address string) (*Product, error) {
	return getProduct(ctx, address)
}

// GetFactory retrieves a factory by derived address.
func (s *SupplyChainContract) GetFactory(ctx contractapi.TransactionContextInterface, address string) (*Factory, error) {
	return getFactory(ctx, address)
}

// GetInspection retrieves an inspection record by derived address.
func (s *SupplyChainContract) GetInspection(ctx contractapi.TransactionContextInterface, address string) (*Inspection, error) {
	return getInspection(ctx, address)
}

// GetWarehouse retrieves a warehouse by derived address.
func (s *SupplyChainContract) GetWarehouse(ctx contractapi.TransactionContextInterface, address string) (*Warehouse, error) {
	return getWarehouse(ctx, address)
}

// GetLogistics retrieves a logistics unit by derived address.
func (s *SupplyChainContract) GetLogistics(ctx contractapi.TransactionContextInterface, address string) (*Logistics, error) {
	return getLogistics(ctx, address)
}

// ListFactoriesByOwner returns all factories owned by one identity.
func (s *SupplyChainContract) ListFactoriesByOwner(ctx contractapi.TransactionContextInterface, owner string) ([]*Factory, error) {
	var factories []*Factory
	err := forEachState(ctx, tagFactory, func(value []byte) error {
		var factory Factory
		if err := json.Unmarshal(value, &factory); err != nil {
			return err
		}
		if factory.Owner == owner {
			factories = append(factories, &factory)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return factories, nil
}

// ListProducts returns every product on the ledger.
func (s *SupplyChainContract) ListProducts(ctx contractapi.TransactionContextInterface) ([]*Product, error) {
	var products []*Product
	err := forEachState(ctx, tagProduct, func(value []byte) error {
		var product Product
		if err := json.Unmarshal(value, &product); err != nil {
			return err
		}
		products = append(products, &product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListProductsByFactory returns the products created by one factory.
func (s *SupplyChainContract) ListProductsByFactory(ctx contractapi.TransactionContextInterface, factoryAddress string) ([]*Product, error) {
	var products []*Product
	err := forEachState(ctx, tagProduct, func(value []byte) error {
		var product Product
		if err := json.Unmarshal(value, &product); err != nil {
			return err
		}
		if product.FactoryAddress == factoryAddress {
			products = append(products, &product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListLogisticsByWarehouse returns the shipment units bound to a warehouse.
func (s *SupplyChainContract) ListLogisticsByWarehouse(ctx contractapi.TransactionContextInterface, warehouseAddress string) ([]*Logistics, error) {
	var units []*Logistics
	err := forEachState(ctx, tagLogistics, func(value []byte) error {
		var logistics Logistics
		if err := json.Unmarshal(value, &logistics); err != nil {
			return err
		}
		if logistics.WarehouseAddress == warehouseAddress {
			units = append(units, &logistics)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

// getOwnedFactory re-derives the factory address from the caller's PDA and the
// claimed sequence id, so a caller cannot point the handler at a factory it
// does not own.
func (s *SupplyChainContract) getOwnedFactory(ctx contractapi.TransactionContextInterface, user *User, factoryID uint64) (*Factory, error) {
	if factoryID == 0 || factoryID > user.FactoryCount {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidFactory, factoryID)
	}
	addr := deriveAddress(tagFactory, []byte(user.Address), factoryID)
	factory, err := s.GetFactory(ctx, addr)
	if err != nil {
		return nil, err
	}
	if factory.Owner != user.Owner {
		return nil, fmt.Errorf("%w: factory %s not owned by caller", ErrUnauthorized, addr)
	}
	return factory, nil
}

// getOwnedWarehouse validates ownership of a caller-supplied warehouse
// address against the re-derived address sequence.
func (s *SupplyChainContract) getOwnedWarehouse(ctx contractapi.TransactionContextInterface, user *User, warehouseAddress string) (*Warehouse, error) {
	warehouse, err := s.GetWarehouse(ctx, warehouseAddress)
	if err != nil {
		return nil, err
	}
	if warehouse.Owner != user.Owner {
		return nil, fmt.Errorf("%w: warehouse %s not owned by caller", ErrUnauthorized, warehouseAddress)
	}
	if deriveAddress(tagWarehouse, []byte(user.Address), warehouse.ID) != warehouse.Address {
		return nil, fmt.Errorf("%w: address mismatch", ErrInvalidWarehouse)
	}
	return warehouse, nil
}

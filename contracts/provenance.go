package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Read-only provenance projections for the presentation layer. These impose
// no invariants beyond the entity definitions; they just stitch the custody
// chain together for a single product.

// ProductProvenance is the public custody view of one product.
type ProductProvenance struct {
	Product        *Product    `json:"product"`
	Factory        *Factory    `json:"factory"`
	Inspection     *Inspection `json:"inspection,omitempty"`
	QualityChecked bool        `json:"qualityChecked"`
	FeeSettled     bool        `json:"feeSettled"`
}

// GetProductProvenance returns the product together with its producing
// factory and, when inspected, the inspection record currently referenced by
// the product. Older inspection records stay on the ledger but are not
// reachable from here once re-inspection repoints the product.
func (s *SupplyChainContract) GetProductProvenance(ctx contractapi.TransactionContextInterface,
	productAddress string) (*ProductProvenance, error) {

	product, err := getProduct(ctx, productAddress)
	if err != nil {
		return nil, err
	}
	factory, err := getFactory(ctx, product.FactoryAddress)
	if err != nil {
		return nil, err
	}

	view := ProductProvenance{
		Product:        product,
		Factory:        factory,
		QualityChecked: product.QualityChecked,
		FeeSettled:     product.InspectionFeePaid,
	}
	if product.InspectorAddress != "" {
		inspection, err := getInspection(ctx, product.InspectorAddress)
		if err != nil {
			return nil, err
		}
		view.Inspection = inspection
	}
	return &view, nil
}

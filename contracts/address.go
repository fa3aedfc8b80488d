package contracts

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/mr-tron/base58"
)

// Seed tags for address derivation. One tag per entity kind; the tag doubles
// as the state key prefix so range scans stay per-kind.
const (
	tagUser            = "user"
	tagWallet          = "wallet"
	tagPlatform        = "platform"
	tagFactory         = "factory"
	tagProduct         = "product"
	tagInspection      = "inspection"
	tagWarehouse       = "warehouse"
	tagLogistics       = "logistics"
	tagSeller          = "seller"
	tagSellerStock     = "seller_stock"
	tagOrder           = "order"
	tagCustomerProduct = "customer_product"
	tagTransaction     = "transaction"
)

// deriveAddress computes the deterministic address of an entity from its kind
// tag, parent key and sequence number: base58(sha256(tag || parent || le64(seq))).
// An address cannot be forged without the exact seed tuple, so handlers
// re-derive and compare instead of trusting caller-supplied references.
func deriveAddress(tag string, parent []byte, seq uint64) string {
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write(parent)
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], seq)
	h.Write(le[:])
	return base58.Encode(h.Sum(nil))
}

// Identity-rooted addresses carry no sequence number.

func userAddress(identity string) string {
	return deriveAddress(tagUser, []byte(identity), 0)
}

func walletAddress(identity string) string {
	return deriveAddress(tagWallet, []byte(identity), 0)
}

func platformAddress() string {
	return deriveAddress(tagPlatform, nil, 0)
}

// Listing and ownership records are keyed by the holder plus the globally
// unique product address. Product sequence ids restart per factory, so they
// cannot seed these addresses on their own.

func sellerStockAddress(sellerAddress, productAddress string) string {
	return deriveAddress(tagSellerStock, []byte(sellerAddress+productAddress), 0)
}

func customerProductAddress(userAddress, productAddress string) string {
	return deriveAddress(tagCustomerProduct, []byte(userAddress+productAddress), 0)
}

// State keys are "<tag>_<address>", the same prefixed-key scheme used for
// range listings: GetStateByRange(prefix, prefix+"~").

func stateKey(tag, address string) string {
	return tag + "_" + address
}

func keyRange(tag string) (string, string) {
	return tag + "_", tag + "_~"
}

// nextSeq returns the successor of a counter, refusing to wrap.
func nextSeq(current uint64) (uint64, error) {
	if current == math.MaxUint64 {
		return 0, ErrOverflow
	}
	return current + 1, nil
}

// addU64 and mulU64 are checked arithmetic for balances and totals.

func addU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

func mulU64(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrOverflow
	}
	return a * b, nil
}

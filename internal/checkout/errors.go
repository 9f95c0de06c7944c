package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrNoItems         = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be at least 1")
)

// PriceChange names one line item whose live price no longer matches the
// client's snapshot.
type PriceChange struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	OldPrice  int64  `json:"old_price"`
	NewPrice  int64  `json:"new_price"`
}

// PriceChangedError aborts order creation when any snapshot price is stale.
// It carries the full change list plus a corrected item list so the client
// can re-confirm before retrying; nothing is silently re-priced.
type PriceChangedError struct {
	Changes        []PriceChange `json:"price_changes"`
	CorrectedItems []ItemInput   `json:"corrected_items"`
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("prices changed for %d item(s), re-confirmation required", len(e.Changes))
}

// InsufficientStockError names the specific variant that could not be
// reserved.
type InsufficientStockError struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

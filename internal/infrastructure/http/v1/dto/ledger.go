package dto

// OpeningStockRequest seeds pre-system stock for one variant.
type OpeningStockRequest struct {
	ItemID    string `json:"itemId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Qty       int64  `json:"qty" binding:"required"`
	Notes     string `json:"notes"`
}

// AdjustmentRequest records a manual stock correction.
type AdjustmentRequest struct {
	ItemID    string `json:"itemId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Lot       string `json:"lot" binding:"required"`
	Delta     int64  `json:"delta" binding:"required"`
	Notes     string `json:"notes"`
}

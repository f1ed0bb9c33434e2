package models

// Dimension fixes which units are legal for an item and what the base unit is.
// It is set at item creation and never changes.
type Dimension string

const (
	DimensionCount  Dimension = "count"
	DimensionLength Dimension = "length"
	DimensionArea   Dimension = "area"
	DimensionVolume Dimension = "volume"
	DimensionWeight Dimension = "weight"
)

func (d Dimension) Valid() bool {
	switch d {
	case DimensionCount, DimensionLength, DimensionArea, DimensionVolume, DimensionWeight:
		return true
	}
	return false
}

// SourceKind classifies what produced a batch or movement.
type SourceKind string

const (
	SourceKindPurchase      SourceKind = "purchase"
	SourceKindStockIn       SourceKind = "stock_in"
	SourceKindSeed          SourceKind = "seed"
	SourceKindAdjustment    SourceKind = "adjustment"
	SourceKindManufacturing SourceKind = "manufacturing"
	SourceKindSold          SourceKind = "sold"
	SourceKindLoss          SourceKind = "loss"
	SourceKindTheft         SourceKind = "theft"
	SourceKindConsume       SourceKind = "consume"
	SourceKindOther         SourceKind = "other"
)

// StockOutReason is the caller-facing reason vocabulary for stock-outs.
type StockOutReason string

const (
	StockOutReasonSold       StockOutReason = "sold"
	StockOutReasonLoss       StockOutReason = "loss"
	StockOutReasonTheft      StockOutReason = "theft"
	StockOutReasonAdjustment StockOutReason = "adjustment"
	StockOutReasonConsume    StockOutReason = "consume"
	StockOutReasonOther      StockOutReason = "other"
)

func (r StockOutReason) Valid() bool {
	switch r {
	case StockOutReasonSold, StockOutReasonLoss, StockOutReasonTheft,
		StockOutReasonAdjustment, StockOutReasonConsume, StockOutReasonOther:
		return true
	}
	return false
}

// RunStatus is the terminal state of a manufacturing run attempt.
// Failed runs are kept for audit; they never carry movements or batches.
type RunStatus string

const (
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailedShortage RunStatus = "failed_shortage"
)

// CashEventKind classifies correlated financial events.
type CashEventKind string

const (
	CashEventKindSale CashEventKind = "sale"
)

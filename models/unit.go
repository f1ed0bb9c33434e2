package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Every persisted quantity in this system is an integer count of base units.
// Base units per dimension: milli-count, millimetre, square millimetre,
// millilitre, milligram. The tables below are the single authority for the
// multiplier between a human unit and its base unit; no other code may
// multiply or divide by a dimension scale factor.
var unitMultiplier = map[Dimension]map[string]int64{
	DimensionCount: {
		"mc": 1,
		"ea": 1000,
		"dz": 12000,
	},
	DimensionLength: {
		"mm": 1,
		"cm": 10,
		"m":  1000,
	},
	DimensionArea: {
		"mm2": 1,
		"cm2": 100,
		"m2":  1000000,
	},
	DimensionVolume: {
		"ml": 1,
		"l":  1000,
	},
	DimensionWeight: {
		"mg": 1,
		"g":  1000,
		"kg": 1000000,
	},
}

var defaultUnit = map[Dimension]string{
	DimensionCount:  "ea",
	DimensionLength: "cm",
	DimensionArea:   "cm2",
	DimensionVolume: "ml",
	DimensionWeight: "g",
}

var unitAlias = map[string]string{
	"each":  "ea",
	"liter": "l",
	"litre": "l",
}

var (
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidUnitCost        = errors.New("invalid_unit_cost")
	ErrFractionalBaseQuantity = errors.New("fractional_base_quantity_not_allowed")
)

// UnsupportedUnitError reports a uom that is not legal for a dimension.
type UnsupportedUnitError struct {
	Dimension Dimension
	Uom       string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("unsupported_uom: %q is not valid for dimension %q", e.Uom, e.Dimension)
}

func NormDimension(dimension string) Dimension {
	return Dimension(strings.ToLower(strings.TrimSpace(dimension)))
}

func NormUnit(uom string) string {
	u := strings.ToLower(strings.TrimSpace(uom))
	if alias, ok := unitAlias[u]; ok {
		return alias
	}
	return u
}

// UomMultiplier returns the fixed integer multiplier from one human unit to
// the dimension's base unit.
func UomMultiplier(dimension Dimension, uom string) (int64, error) {
	units, ok := unitMultiplier[dimension]
	if !ok {
		return 0, &UnsupportedUnitError{Dimension: dimension, Uom: uom}
	}
	mult, ok := units[NormUnit(uom)]
	if !ok {
		return 0, &UnsupportedUnitError{Dimension: dimension, Uom: uom}
	}
	return mult, nil
}

// DefaultUnitFor returns the display unit used when an item carries none.
func DefaultUnitFor(dimension Dimension) string {
	if u, ok := defaultUnit[dimension]; ok {
		return u
	}
	return "mc"
}

// ValidUnitFor reports whether uom is legal for the dimension.
func ValidUnitFor(dimension Dimension, uom string) bool {
	_, err := UomMultiplier(dimension, uom)
	return err == nil
}

func parseWireDecimal(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	switch cleaned {
	case "", ".", "-.", "+.":
		return decimal.Decimal{}, ErrInvalidQuantity
	}
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidQuantity
	}
	return d, nil
}

// NormalizeQuantityToBaseInt converts a wire decimal quantity into an exact
// positive integer of base units. Fractional base quantities are rejected,
// never rounded: base units are fine enough that legitimate inputs always
// land on an integer.
func NormalizeQuantityToBaseInt(dimension Dimension, uom string, quantityDecimal string) (int64, error) {
	mult, err := UomMultiplier(dimension, uom)
	if err != nil {
		return 0, err
	}

	qtyDec, err := parseWireDecimal(quantityDecimal)
	if err != nil {
		return 0, err
	}

	qtyBase := qtyDec.Mul(decimal.NewFromInt(mult))
	if !qtyBase.IsInteger() {
		return 0, ErrFractionalBaseQuantity
	}
	bi := qtyBase.BigInt()
	if !bi.IsInt64() {
		return 0, ErrInvalidQuantity
	}
	qtyInt := bi.Int64()
	if qtyInt <= 0 {
		return 0, ErrInvalidQuantity
	}
	return qtyInt, nil
}

// FromBase converts a base-unit quantity back to a human quantity for display.
// This is the read-side inverse of NormalizeQuantityToBaseInt and must never
// feed back into stored quantities or cost math.
func FromBase(qtyBase int64, uom string, dimension Dimension) (decimal.Decimal, error) {
	mult, err := UomMultiplier(dimension, uom)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.New(qtyBase, 0).DivRound(decimal.NewFromInt(mult), 12), nil
}

// NormalizeCostToBaseCents converts a wire decimal unit cost (currency per one
// human unit) into integer cents per base unit, round-half-up. Audit tooling
// only; ledger rows always store cents per human unit.
func NormalizeCostToBaseCents(dimension Dimension, costUom string, unitCostDecimal string) (int64, error) {
	mult, err := UomMultiplier(dimension, costUom)
	if err != nil {
		return 0, err
	}
	costDec, err := parseWireDecimal(unitCostDecimal)
	if err != nil {
		return 0, ErrInvalidUnitCost
	}
	if costDec.IsNegative() {
		return 0, ErrInvalidUnitCost
	}
	centsPerHumanUnit := costDec.Mul(decimal.NewFromInt(100))
	// DivRound rounds half away from zero; values here are non-negative, so
	// this is round-half-up.
	return centsPerHumanUnit.DivRound(decimal.NewFromInt(mult), 0).IntPart(), nil
}

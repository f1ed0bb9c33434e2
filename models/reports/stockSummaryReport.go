package reports

import (
	"context"
	"time"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
)

type StockSummaryRow struct {
	ItemID       int64  `json:"item_id"`
	ItemName     string `json:"item_name"`
	Sku          string `json:"sku,omitempty"`
	Uom          string `json:"uom"`
	OpeningStock string `json:"opening_stock"`
	QtyIn        string `json:"qty_in"`
	QtyOut       string `json:"qty_out"`
	ClosingStock string `json:"closing_stock"`
}

type stockSummaryScan struct {
	ItemID      int64
	ItemName    string
	Sku         string
	Dimension   models.Dimension
	Uom         string
	OpeningBase int64
	QtyInBase   int64
	QtyOutBase  int64
	ClosingBase int64
}

// GetStockSummaryReport aggregates the movement ledger per item over a date
// window: stock before the window, signed flow inside it, and the closing
// position. Sums stay in integer base units inside SQL; conversion to human
// quantities happens once per row on the way out.
func GetStockSummaryReport(ctx context.Context, fromDate time.Time, toDate time.Time) ([]*StockSummaryRow, error) {
	db := config.GetDB()
	if db == nil {
		return nil, models.ErrDBNotInitialized
	}

	sql := `
WITH ledger AS (
    SELECT
        m.item_id,
        SUM(CASE WHEN m.created_at < @fromDate THEN m.qty_change_base ELSE 0 END) AS opening_base,
        SUM(CASE WHEN m.created_at >= @fromDate AND m.created_at <= @toDate AND m.qty_change_base > 0 THEN m.qty_change_base ELSE 0 END) AS qty_in_base,
        SUM(CASE WHEN m.created_at >= @fromDate AND m.created_at <= @toDate AND m.qty_change_base < 0 THEN -m.qty_change_base ELSE 0 END) AS qty_out_base
    FROM item_movements m
    GROUP BY m.item_id
)
SELECT
    i.id AS item_id,
    i.name AS item_name,
    i.sku,
    i.dimension,
    i.uom,
    COALESCE(l.opening_base, 0) AS opening_base,
    COALESCE(l.qty_in_base, 0) AS qty_in_base,
    COALESCE(l.qty_out_base, 0) AS qty_out_base,
    COALESCE(l.opening_base, 0) + COALESCE(l.qty_in_base, 0) - COALESCE(l.qty_out_base, 0) AS closing_base
FROM items i
LEFT JOIN ledger l ON l.item_id = i.id
ORDER BY i.name;
`
	var scanned []stockSummaryScan
	err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"fromDate": fromDate,
		"toDate":   toDate,
	}).Scan(&scanned).Error
	if err != nil {
		return nil, err
	}

	rows := make([]*StockSummaryRow, 0, len(scanned))
	for _, s := range scanned {
		item := models.Item{Dimension: s.Dimension, Uom: s.Uom}
		uom := item.ResolveUom()
		toHuman := func(base int64) (string, error) {
			d, err := models.FromBase(base, uom, s.Dimension)
			if err != nil {
				return "", err
			}
			return d.String(), nil
		}
		opening, err := toHuman(s.OpeningBase)
		if err != nil {
			return nil, err
		}
		qtyIn, err := toHuman(s.QtyInBase)
		if err != nil {
			return nil, err
		}
		qtyOut, err := toHuman(s.QtyOutBase)
		if err != nil {
			return nil, err
		}
		closing, err := toHuman(s.ClosingBase)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &StockSummaryRow{
			ItemID:       s.ItemID,
			ItemName:     s.ItemName,
			Sku:          s.Sku,
			Uom:          uom,
			OpeningStock: opening,
			QtyIn:        qtyIn,
			QtyOut:       qtyOut,
			ClosingStock: closing,
		})
	}
	return rows, nil
}

package app

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const importBatch = 500

// csvColumns is the expected header of an order import file.
var csvColumns = []string{"shipped_at", "account_id", "product_id", "quantity", "unit_price"}

// ImportCSV loads order lines from r into the order store and returns how many were stored.
// Empty or unparsable cells are stored as missing; normalization drops those lines later.
func (a *App) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(rows); start += importBatch {
		end := start + importBatch
		if end > len(rows) {
			end = len(rows)
		}
		if err := a.store.InsertOrders(ctx, rows[start:end]); err != nil {
			return start, errors.Wrapf(err, "insert rows %d-%d", start+1, end)
		}
	}
	return len(rows), nil
}

// ParseCSV reads order lines with a shipped_at,account_id,product_id,quantity,unit_price header.
// shipped_at is RFC 3339 or YYYY-MM-DD.
func ParseCSV(r io.Reader) ([]domain.RawOrder, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvColumns)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	for i, col := range csvColumns {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return nil, errors.Errorf("unexpected csv column %d: %q, want %q", i+1, header[i], col)
		}
	}

	var out []domain.RawOrder
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv line %d", len(out)+2)
		}
		out = append(out, domain.RawOrder{
			Timestamp: parseTimestamp(rec[0]),
			AccountID: strings.TrimSpace(rec[1]),
			ProductID: strings.TrimSpace(rec[2]),
			Quantity:  parseAmount(rec[3]),
			UnitPrice: parseAmount(rec[4]),
		})
	}
	return out, nil
}

func parseTimestamp(v string) *time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func parseAmount(v string) *decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &d
}

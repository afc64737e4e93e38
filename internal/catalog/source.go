package catalog

import (
	"context"
	"errors"

	"FurniStore/internal/sheets"
)

var ErrNoProducts = errors.New("no product data found")

// Source yields a complete product snapshot or fails as a whole.
type Source interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

type RowFetcher interface {
	FetchRows(ctx context.Context, sheetID string) ([][]string, error)
}

// SheetSource reads products from the published product sheet.
type SheetSource struct {
	Rows    RowFetcher
	Parser  *sheets.Parser
	SheetID string
}

func (s *SheetSource) FetchProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.Rows.FetchRows(ctx, s.SheetID)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, ErrNoProducts
	}
	return sheets.Decode(s.Parser, "products", rows, minProductCols, decodeProduct), nil
}

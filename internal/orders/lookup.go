package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"FurniStore/internal/sheets"
)

var (
	ErrMobileRequired = errors.New("mobile number required")
	ErrInvalidMobile  = errors.New("mobile number must have at least 10 digits")
)

type RowFetcher interface {
	FetchRows(ctx context.Context, sheetID string) ([][]string, error)
}

// Service looks orders up by mobile number. The order sheet is read on every
// lookup; statuses change too often to cache.
type Service struct {
	Rows    RowFetcher
	Parser  *sheets.Parser
	SheetID string
	Log     *zap.Logger
	Now     func() time.Time
}

func NewService(rows RowFetcher, parser *sheets.Parser, sheetID string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Rows: rows, Parser: parser, SheetID: sheetID, Log: log, Now: time.Now}
}

// ValidateMobile returns the normalized number or why it cannot be used.
func ValidateMobile(mobile string) (string, error) {
	if strings.TrimSpace(mobile) == "" {
		return "", ErrMobileRequired
	}
	m := NormalizeMobile(mobile)
	if len(m) < 10 {
		return "", ErrInvalidMobile
	}
	return m, nil
}

// Lookup returns the orders placed with mobile, in sheet order.
func (s *Service) Lookup(ctx context.Context, mobile string) ([]Order, error) {
	want, err := ValidateMobile(mobile)
	if err != nil {
		return nil, err
	}

	rows, err := s.Rows.FetchRows(ctx, s.SheetID)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	found := sheets.Decode(s.Parser, "orders", forMobile(rows, want), minOrderCols, rowDecoder(now()))
	s.Log.Debug("orders looked up", zap.Int("rows", max(len(rows)-1, 0)), zap.Int("found", len(found)))
	return found, nil
}

// All decodes every order row regardless of mobile. It also returns how many
// data rows the sheet had, so callers can tell how many were dropped.
func (s *Service) All(ctx context.Context) (orders []Order, rows int, err error) {
	raw, err := s.Rows.FetchRows(ctx, s.SheetID)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return sheets.Decode(s.Parser, "orders", raw, minOrderCols, rowDecoder(now())), max(len(raw)-1, 0), nil
}

// forMobile keeps the header and the rows placed with want.
func forMobile(rows [][]string, want string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	out := [][]string{rows[0]}
	for _, raw := range rows[1:] {
		if NormalizeMobile(sheets.Row(raw).Col(colMobile)) == want {
			out = append(out, raw)
		}
	}
	return out
}

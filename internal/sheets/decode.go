package sheets

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const ReasonShortRow = "short_row"

// Row is one data row of a sheet.
type Row []string

// Col returns cell i, or "" when the row is shorter.
func (r Row) Col(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// RowFunc converts a row into a record. A non-empty reason drops the row.
type RowFunc[T any] func(row Row) (rec T, reason string)

// Parser carries the side channels of row decoding. Dropped rows are never
// surfaced to callers; they show up only in the debug log and the counter.
type Parser struct {
	Log     *zap.Logger
	Dropped *prometheus.CounterVec
}

func NewParser(log *zap.Logger, reg prometheus.Registerer) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{Log: log}
	if reg != nil {
		p.Dropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheet_rows_dropped_total",
				Help: "Sheet rows rejected while decoding",
			},
			[]string{"sheet", "reason"},
		)
		reg.MustRegister(p.Dropped)
	}
	return p
}

func (p *Parser) drop(sheet string, line int, reason string) {
	if p == nil {
		return
	}
	if p.Log != nil {
		p.Log.Debug("sheet row dropped",
			zap.String("sheet", sheet),
			zap.Int("line", line),
			zap.String("reason", reason),
		)
	}
	if p.Dropped != nil {
		p.Dropped.WithLabelValues(sheet, reason).Inc()
	}
}

// Decode skips the header row and converts the remaining rows in order.
// Rows shorter than minCols or rejected by fn are dropped.
func Decode[T any](p *Parser, sheet string, rows [][]string, minCols int, fn RowFunc[T]) []T {
	if len(rows) < 2 {
		return []T{}
	}

	out := make([]T, 0, len(rows)-1)
	for i, raw := range rows[1:] {
		line := i + 2
		if len(raw) < minCols {
			p.drop(sheet, line, ReasonShortRow)
			continue
		}

		rec, reason := fn(Row(raw))
		if reason != "" {
			p.drop(sheet, line, reason)
			continue
		}
		out = append(out, rec)
	}
	return out
}

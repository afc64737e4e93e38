package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseCSV_QuotedCellsAndBlankLines(t *testing.T) {
	data := "\xEF\xBB\xBFid,name,features\n" +
		"1, Oak Table ,\"Solid oak, oiled|Seats 6\"\n" +
		"\n" +
		"2,\"Sofa\nwith newline\",\n"

	rows, err := ParseCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"id", "name", "features"}, rows[0])
	assert.Equal(t, []string{"1", "Oak Table", "Solid oak, oiled|Seats 6"}, rows[1])
	assert.Equal(t, "Sofa\nwith newline", rows[2][1])
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"899", "899", true},
		{"₹1,299.50", "1299.5", true},
		{"INR 45 900", "45900", true},
		{"N/A", "0", false},
		{"", "0", false},
		{"1.2.3", "1.2", true},
		{".", "0", false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%s: got %s", tc.in, got)
	}
}

func TestCellHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a | |b|"))
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, "dining-tables", Slug("  Dining   Tables "))
	assert.Equal(t, 4.5, FloatOr("n/a", 4.5))
	assert.Equal(t, 4.8, FloatOr("4.8 stars", 4.5))
	assert.Equal(t, 0, IntOr("", 0))
	assert.Equal(t, 1234, IntOr("1,234 reviews", 0))
	assert.True(t, IsNo(" No "))
	assert.True(t, IsNo("FALSE"))
	assert.False(t, IsNo(""))
	assert.False(t, IsNo("yes"))
	assert.Equal(t, "Customer", Or("  ", "Customer"))
}

func TestDecode_SkipsHeaderAndDropsRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewParser(zap.NewNop(), reg)

	rows := [][]string{
		{"id", "name"},
		{"1", "kept"},
		{"2"},
		{"3", ""},
		{"4", "also kept"},
	}

	got := Decode(p, "products", rows, 2, func(r Row) (string, string) {
		if r.Col(1) == "" {
			return "", "missing_name"
		}
		return r.Col(0) + ":" + r.Col(1), ""
	})

	assert.Equal(t, []string{"1:kept", "4:also kept"}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Dropped.WithLabelValues("products", ReasonShortRow)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Dropped.WithLabelValues("products", "missing_name")))
}

func TestDecode_HeaderOnly(t *testing.T) {
	got := Decode(nil, "orders", [][]string{{"id"}}, 1, func(r Row) (string, string) { return r.Col(0), "" })
	assert.Empty(t, got)
	assert.Equal(t, "", Row{"a"}.Col(3))
}

func TestClient_FetchRows(t *testing.T) {
	var gotPath, gotQuery, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAccept = r.URL.Path, r.URL.RawQuery, r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("id,name\n1,Table\n"))
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{BaseURL: ts.URL + "/", FetchesPerSecond: 100}, zap.NewNop())
	rows, err := c.FetchRows(context.Background(), "sheet-1")
	require.NoError(t, err)

	assert.Equal(t, "/spreadsheets/d/sheet-1/export", gotPath)
	assert.Equal(t, "format=csv&range=A:Z", gotQuery)
	assert.Equal(t, "text/csv", gotAccept)
	assert.Equal(t, [][]string{{"id", "name"}, {"1", "Table"}}, rows)
}

func TestClient_FetchRowsErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{BaseURL: ts.URL}, nil)

	_, err := c.FetchRows(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrBadStatus), "err=%v", err)

	_, err = c.FetchRows(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNoSheet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.FetchRows(ctx, "sheet")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_FetchRowsTooLarge(t *testing.T) {
	body := "id,name\n" + strings.Repeat("1,Table\n", 64)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	c := NewClient(Options{BaseURL: ts.URL, MaxBytes: int64(len(body) - 1)}, nil)
	rows, err := c.FetchRows(context.Background(), "big")
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Nil(t, rows)

	c = NewClient(Options{BaseURL: ts.URL, MaxBytes: int64(len(body))}, nil)
	rows, err = c.FetchRows(context.Background(), "big")
	require.NoError(t, err)
	assert.Len(t, rows, 65)
}

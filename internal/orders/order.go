package orders

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FurniStore/internal/sheets"
)

type Order struct {
	ID                string          `json:"id"`
	Mobile            string          `json:"mobile"`
	CustomerName      string          `json:"customerName"`
	Items             []string        `json:"items"`
	Status            Status          `json:"status"`
	OrderDate         string          `json:"orderDate"`
	EstimatedDelivery string          `json:"estimatedDelivery"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Images            []string        `json:"images"`
}

const (
	DefaultCustomerName      = "Customer"
	DefaultEstimatedDelivery = "2-3 business days"
)

// Order sheet columns.
const (
	colOrderID = iota
	colMobile
	colCustomerName
	colItems
	colStatus
	colOrderDate
	colEstimatedDelivery
	colTotalAmount
	colImages

	minOrderCols = colOrderDate + 1
)

// rowDecoder fills the id and date of rows that leave them blank from now.
func rowDecoder(now time.Time) sheets.RowFunc[Order] {
	return func(r sheets.Row) (Order, string) {
		total, ok := sheets.ParseAmount(r.Col(colTotalAmount))
		if !ok {
			total = decimal.Zero
		}

		return Order{
			ID:                sheets.Or(r.Col(colOrderID), "ORD"+strconv.FormatInt(now.UnixMilli(), 10)),
			Mobile:            r.Col(colMobile),
			CustomerName:      sheets.Or(r.Col(colCustomerName), DefaultCustomerName),
			Items:             sheets.SplitList(r.Col(colItems)),
			Status:            ParseStatus(r.Col(colStatus)),
			OrderDate:         sheets.Or(r.Col(colOrderDate), now.Format(time.DateOnly)),
			EstimatedDelivery: sheets.Or(r.Col(colEstimatedDelivery), DefaultEstimatedDelivery),
			TotalAmount:       total,
			Images:            sheets.SplitList(r.Col(colImages)),
		}, ""
	}
}

// NormalizeMobile keeps the digits of s and returns at most the last ten.
func NormalizeMobile(s string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"FurniStore/internal/cart"
)

// Details is the payment form. Card fields are checked for shape and then
// dropped; only the last four digits reach a Receipt.
type Details struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	ZipCode    string `json:"zipCode"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

type Receipt struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"-"`
	Items       []cart.Item     `json:"items"`
	ItemCount   int             `json:"itemCount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	ZipCode     string          `json:"zipCode"`
	CardLast4   string          `json:"cardLast4"`
	PaidAt      time.Time       `json:"paidAt"`
}

const DefaultDimensions = "To be discussed"

type CustomOrderReq struct {
	Description string `json:"description"`
	Dimensions  string `json:"dimensions"`
	Contact     string `json:"contact"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type CustomOrder struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Dimensions  string    `json:"dimensions"`
	Contact     string    `json:"contact"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

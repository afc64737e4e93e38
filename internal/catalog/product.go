package catalog

import (
	"github.com/shopspring/decimal"

	"FurniStore/internal/sheets"
)

// Product prices are in major currency units (rupees). Dimensions are kept
// as the free-form text the sheet carries.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Category      string           `json:"category"`
	Description   string           `json:"description"`
	Features      []string         `json:"features"`
	Dimensions    string           `json:"dimensions"`
	Material      string           `json:"material"`
	Images        []string         `json:"images"`
	InStock       bool             `json:"inStock"`
	Rating        float64          `json:"rating"`
	Reviews       int              `json:"reviews"`
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Product) Clone() Product {
	c := p
	c.Features = append([]string(nil), p.Features...)
	c.Images = append([]string(nil), p.Images...)
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		c.OriginalPrice = &op
	}
	return c
}

const (
	DefaultImage      = "https://images.pexels.com/photos/1571460/pexels-photo-1571460.jpeg?auto=compress&cs=tinysrgb&w=800"
	DefaultDimensions = "Custom dimensions available"
	DefaultMaterial   = "Shesham Wood"
	DefaultRating     = 4.5
)

// Product sheet columns.
const (
	colID = iota
	colName
	colPrice
	colCategory
	colDescription
	colFeatures
	colDimensions
	colMaterial
	colImages
	colInStock
	colRating
	colReviews
	colOriginalPrice

	minProductCols = colImages
)

const (
	reasonMissingID       = "missing_id"
	reasonMissingName     = "missing_name"
	reasonMissingCategory = "missing_category"
	reasonBadPrice        = "bad_price"
)

func decodeProduct(r sheets.Row) (Product, string) {
	id, name, category := r.Col(colID), r.Col(colName), r.Col(colCategory)
	switch {
	case id == "":
		return Product{}, reasonMissingID
	case name == "":
		return Product{}, reasonMissingName
	case category == "":
		return Product{}, reasonMissingCategory
	}

	price, ok := sheets.ParseAmount(r.Col(colPrice))
	if !ok || !price.IsPositive() {
		return Product{}, reasonBadPrice
	}

	images := sheets.SplitList(r.Col(colImages))
	if len(images) == 0 {
		images = []string{DefaultImage}
	}

	p := Product{
		ID:          id,
		Name:        name,
		Price:       price,
		Category:    sheets.Slug(category),
		Description: r.Col(colDescription),
		Features:    sheets.SplitList(r.Col(colFeatures)),
		Dimensions:  sheets.Or(r.Col(colDimensions), DefaultDimensions),
		Material:    sheets.Or(r.Col(colMaterial), DefaultMaterial),
		Images:      images,
		InStock:     !sheets.IsNo(r.Col(colInStock)),
		Rating:      sheets.FloatOr(r.Col(colRating), DefaultRating),
		Reviews:     sheets.IntOr(r.Col(colReviews), 0),
	}
	if op, ok := sheets.ParseAmount(r.Col(colOriginalPrice)); ok && op.IsPositive() {
		p.OriginalPrice = &op
	}
	return p, ""
}

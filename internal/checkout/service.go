package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"FurniStore/internal/cart"
)

const DefaultDelay = 3 * time.Second

var (
	FreeDeliveryOver = decimal.NewFromInt(500)
	FlatDeliveryFee  = decimal.NewFromInt(49)
)

var (
	ErrInvalid   = errors.New("invalid request")
	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError lists the request fields that failed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Service simulates payment and takes custom furniture requests. No money
// moves; a successful Pay only produces a Receipt.
type Service struct {
	Store Store
	Delay time.Duration
	Log   *zap.Logger
	Now   func() time.Time
}

func NewService(store Store, delay time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Store: store, Delay: delay, Log: log, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// DeliveryFee is free above FreeDeliveryOver and flat otherwise.
func DeliveryFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeDeliveryOver) {
		return decimal.Zero
	}
	return FlatDeliveryFee
}

func (s *Service) Pay(ctx context.Context, sessionID string, st cart.State, d Details) (Receipt, error) {
	if len(st.Items) == 0 {
		return Receipt{}, ErrEmptyCart
	}
	if err := validateDetails(&d); err != nil {
		return Receipt{}, err
	}

	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return Receipt{}, ctx.Err()
		}
	}

	paidAt := s.now().UTC()
	fee := DeliveryFee(st.Total)
	r := Receipt{
		ID:          receiptID(paidAt),
		SessionID:   sessionID,
		Items:       st.Items,
		ItemCount:   st.ItemCount,
		Subtotal:    st.Total,
		DeliveryFee: fee,
		Total:       st.Total.Add(fee),
		Email:       d.Email,
		Name:        d.Name,
		Address:     d.Address,
		City:        d.City,
		ZipCode:     d.ZipCode,
		CardLast4:   d.CardNumber[len(d.CardNumber)-4:],
		PaidAt:      paidAt,
	}

	if err := s.Store.SaveReceipt(ctx, r); err != nil {
		return Receipt{}, fmt.Errorf("save receipt: %w", err)
	}
	s.Log.Info("payment simulated",
		zap.String("receipt_id", r.ID),
		zap.Int("items", r.ItemCount),
		zap.String("total", r.Total.String()),
	)
	return r, nil
}

// receiptID is HC<unix-millis> plus a random suffix, so payments landing in
// the same millisecond still get distinct ids.
func receiptID(paidAt time.Time) string {
	return "HC" + strconv.FormatInt(paidAt.UnixMilli(), 10) + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// validateDetails trims d in place and reports every missing or malformed
// field. CardNumber is reduced to its digits.
func validateDetails(d *Details) error {
	for _, f := range []*string{&d.Email, &d.Name, &d.Address, &d.City, &d.ZipCode, &d.ExpiryDate, &d.CVV} {
		*f = strings.TrimSpace(*f)
	}
	d.CardNumber = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, d.CardNumber)

	var bad []string
	if _, err := mail.ParseAddress(d.Email); err != nil || !strings.Contains(d.Email, "@") {
		bad = append(bad, "email")
	}
	if d.Name == "" {
		bad = append(bad, "name")
	}
	if d.Address == "" {
		bad = append(bad, "address")
	}
	if d.City == "" {
		bad = append(bad, "city")
	}
	if d.ZipCode == "" {
		bad = append(bad, "zipCode")
	}
	if n := len(d.CardNumber); n < 12 || n > 19 {
		bad = append(bad, "cardNumber")
	}
	if d.ExpiryDate == "" {
		bad = append(bad, "expiryDate")
	}
	if n := len(d.CVV); n < 3 || n > 4 {
		bad = append(bad, "cvv")
	}

	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

func (s *Service) Receipt(ctx context.Context, id string) (Receipt, bool, error) {
	return s.Store.Receipt(ctx, id)
}

func (s *Service) SubmitCustomOrder(ctx context.Context, req CustomOrderReq) (CustomOrder, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.Contact = strings.TrimSpace(req.Contact)

	var bad []string
	if req.Description == "" {
		bad = append(bad, "description")
	}
	if req.Contact == "" {
		bad = append(bad, "contact")
	}
	if len(bad) > 0 {
		return CustomOrder{}, &ValidationError{Fields: bad}
	}

	o := CustomOrder{
		ID:          "co_" + uuid.NewString(),
		Description: req.Description,
		Dimensions:  DefaultDimensions,
		Contact:     req.Contact,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Status:      "received",
		CreatedAt:   s.now().UTC(),
	}
	if dims := strings.TrimSpace(req.Dimensions); dims != "" {
		o.Dimensions = dims
	}

	if err := s.Store.SaveCustomOrder(ctx, o); err != nil {
		return CustomOrder{}, fmt.Errorf("save custom order: %w", err)
	}
	s.Log.Info("custom order received", zap.String("custom_order_id", o.ID))
	return o, nil
}

func (s *Service) CustomOrder(ctx context.Context, id string) (CustomOrder, bool, error) {
	return s.Store.CustomOrder(ctx, id)
}

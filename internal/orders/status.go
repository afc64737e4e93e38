package orders

import "strings"

// Status is free text from the order sheet. Unknown values are kept as-is
// and track as the first stage.
type Status string

const (
	StatusConfirmed    Status = "confirmed"
	StatusProcessing   Status = "processing"
	StatusQualityCheck Status = "quality-check"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
)

const lastStep = 4

func ParseStatus(s string) Status {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusProcessing
	}
	return Status(s)
}

func (s Status) Step() int {
	switch s {
	case StatusProcessing:
		return 1
	case StatusQualityCheck:
		return 2
	case StatusShipped:
		return 3
	case StatusDelivered:
		return 4
	}
	return 0
}

// Progress is the completed share of the tracking stages, 0 to 100.
func (s Status) Progress() int {
	return s.Step() * 100 / lastStep
}

type Stage struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var stages = []Stage{
	{0, "Order Confirmed", "Your order has been received and confirmed"},
	{1, "Processing", "Crafting your furniture with care"},
	{2, "Quality Check", "Ensuring perfect quality standards"},
	{3, "Out for Delivery", "On the way to your location"},
	{4, "Delivered", "Successfully delivered to you"},
}

func Stages() []Stage {
	return append([]Stage(nil), stages...)
}

package booking

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidGuests = errors.New("guests must be at least 1")
	ErrNoDraft       = errors.New("no booking found")
)

const (
	MinimumHours  = 3
	StatusPending = "pending"
)

var (
	DefaultChefRate = decimal.NewFromInt(1500)
	PlatformFee     = decimal.NewFromInt(99)
	taxRate         = decimal.RequireFromString("0.18")
	partySurcharge  = decimal.RequireFromString("1.2")
)

// ServiceType is a bookable service with its hourly price.
type ServiceType struct {
	Value string          `json:"value"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

var serviceTypes = []ServiceType{
	{Value: "home-cooking", Label: "Home Cooking", Price: decimal.NewFromInt(1500)},
	{Value: "party-catering", Label: "Party Catering", Price: decimal.NewFromInt(2000)},
	{Value: "cooking-class", Label: "Cooking Class", Price: decimal.NewFromInt(1800)},
	{Value: "meal-prep", Label: "Meal Prep", Price: decimal.NewFromInt(1200)},
}

func ServiceTypes() []ServiceType {
	return append([]ServiceType(nil), serviceTypes...)
}

func lookupService(value string) (ServiceType, bool) {
	for _, s := range serviceTypes {
		if s.Value == value {
			return s, true
		}
	}
	return ServiceType{}, false
}

// Pricing is a quote in whole currency units.
type Pricing struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	Total       decimal.Decimal `json:"total"`
}

// Quote prices a booking. The hourly base is the service price, or
// chefRate for an unknown service. Parties larger than four pay a 20%
// surcharge and 18% tax is added on top. The total is rounded from the
// unrounded parts.
func Quote(service string, chefRate decimal.Decimal, guests, hours int) (Pricing, error) {
	if guests < 1 {
		return Pricing{}, ErrInvalidGuests
	}
	if hours < MinimumHours {
		hours = MinimumHours
	}

	base := chefRate
	if s, ok := lookupService(service); ok {
		base = s.Price
	}
	if base.Sign() <= 0 {
		base = DefaultChefRate
	}

	subtotal := base.Mul(decimal.NewFromInt(int64(hours)))
	if guests > 4 {
		subtotal = subtotal.Mul(partySurcharge)
	}
	tax := subtotal.Mul(taxRate)

	return Pricing{
		Subtotal:    subtotal.Round(0),
		Tax:         tax.Round(0),
		PlatformFee: PlatformFee,
		Total:       subtotal.Add(tax).Add(PlatformFee).Round(0),
	}, nil
}

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type Details struct {
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	Guests          int     `json:"guests"`
	Hours           int     `json:"hours"`
	ServiceType     string  `json:"serviceType"`
	Address         string  `json:"address"`
	SpecialRequests string  `json:"specialRequests"`
	PaymentMethod   string  `json:"paymentMethod"`
	Pricing         Pricing `json:"pricing"`
}

// Booking is a submitted booking draft. It only lives in the session
// cache; there is no booking table.
type Booking struct {
	ID        string   `json:"id"`
	ChefID    string   `json:"chefId"`
	ChefName  string   `json:"chefName"`
	Customer  Customer `json:"customer"`
	Details   Details  `json:"bookingDetails"`
	Timestamp string   `json:"timestamp"`
	Status    string   `json:"status"`
}

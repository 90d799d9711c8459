package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/chef-marketplace-backend/internal/profile"
	"go.uber.org/zap"
)

// ChefLookup resolves the chef being booked.
type ChefLookup interface {
	GetPublicProfile(ctx context.Context, id string) (profile.Profile, error)
}

type QuoteRequest struct {
	ChefID      string `json:"chefId"`
	ServiceType string `json:"serviceType"`
	Guests      int    `json:"guests"`
	Hours       int    `json:"hours"`
}

type SubmitRequest struct {
	QuoteRequest
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	SpecialRequests string   `json:"specialRequests"`
	PaymentMethod   string   `json:"paymentMethod"`
	Customer        Customer `json:"customer"`
}

type Service struct {
	drafts *DraftStore
	chefs  ChefLookup
	log    *zap.Logger
	now    func() time.Time
}

func NewService(drafts *DraftStore, chefs ChefLookup, log *zap.Logger) *Service {
	return &Service{drafts: drafts, chefs: chefs, log: log, now: time.Now}
}

// Quote prices req against the chef's own hourly rate when the chef is
// known, otherwise against the default rate.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Pricing, error) {
	return quoteFor(s.lookupChef(ctx, req.ChefID), req)
}

func quoteFor(chef profile.Profile, req QuoteRequest) (Pricing, error) {
	rate := DefaultChefRate
	if chef.HourlyRate > 0 {
		rate = decimal.NewFromFloat(chef.HourlyRate)
	}
	return Quote(req.ServiceType, rate, req.Guests, req.Hours)
}

// Submit records a pending booking for the session. Customer fields left
// empty are filled in from the signed-in profile, if any.
func (s *Service) Submit(ctx context.Context, sid string, req SubmitRequest, me *profile.Profile) (Booking, error) {
	chef := s.lookupChef(ctx, req.ChefID)
	pricing, err := quoteFor(chef, req.QuoteRequest)
	if err != nil {
		return Booking{}, err
	}

	customer := req.Customer
	if me != nil {
		fill := func(dst *string, v string) {
			if *dst == "" {
				*dst = v
			}
		}
		fill(&customer.FirstName, me.FirstName)
		fill(&customer.LastName, me.LastName)
		fill(&customer.Email, me.Email)
		fill(&customer.Phone, me.Phone)
		fill(&customer.Address, me.Location)
	}

	hours := req.Hours
	if hours < MinimumHours {
		hours = MinimumHours
	}
	b := Booking{
		ID:       uuid.NewString(),
		ChefID:   req.ChefID,
		Customer: customer,
		Details: Details{
			Date:            req.Date,
			Time:            req.Time,
			Guests:          req.Guests,
			Hours:           hours,
			ServiceType:     req.ServiceType,
			Address:         customer.Address,
			SpecialRequests: req.SpecialRequests,
			PaymentMethod:   req.PaymentMethod,
			Pricing:         pricing,
		},
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Status:    StatusPending,
	}
	if chef.ID != "" {
		b.ChefName = chef.Label()
	}

	if err := s.drafts.Add(ctx, sid, b); err != nil {
		s.log.Error("store booking failed", zap.String("sid", sid), zap.Error(err))
		return Booking{}, err
	}
	s.log.Info("booking submitted", zap.String("id", b.ID), zap.String("chef_id", b.ChefID), zap.String("total", pricing.Total.String()))
	return b, nil
}

func (s *Service) List(ctx context.Context, sid string) ([]Booking, error) {
	return s.drafts.List(ctx, sid)
}

func (s *Service) Latest(ctx context.Context, sid string) (Booking, error) {
	return s.drafts.Latest(ctx, sid)
}

func (s *Service) lookupChef(ctx context.Context, id string) profile.Profile {
	if id == "" || s.chefs == nil {
		return profile.Profile{}
	}
	p, err := s.chefs.GetPublicProfile(ctx, id)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			s.log.Warn("chef lookup failed, using default rate", zap.String("chef_id", id), zap.Error(err))
		}
		return profile.Profile{}
	}
	if p.Role != profile.RoleChef {
		return profile.Profile{}
	}
	return p
}

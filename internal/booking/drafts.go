package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wichananm65/chef-marketplace-backend/internal/session"
	"go.uber.org/zap"
)

const (
	listSuffix   = ":customerBookings"
	latestSuffix = ":latestBooking"
)

// DraftStore keeps a session's submitted bookings and the most recent one
// in the session cache.
type DraftStore struct {
	cache session.Cache
	log   *zap.Logger
}

func NewDraftStore(cache session.Cache, log *zap.Logger) *DraftStore {
	return &DraftStore{cache: cache, log: log}
}

// Add appends b to the session's list and marks it as the latest booking.
func (s *DraftStore) Add(ctx context.Context, sid string, b Booking) error {
	list, err := s.List(ctx, sid)
	if err != nil {
		return err
	}
	list = append(list, b)

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode bookings: %w", err)
	}
	if err := s.cache.Store(ctx, sid+listSuffix, data); err != nil {
		return fmt.Errorf("store bookings: %w", err)
	}

	latest, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode booking: %w", err)
	}
	if err := s.cache.Store(ctx, sid+latestSuffix, latest); err != nil {
		return fmt.Errorf("store latest booking: %w", err)
	}
	return nil
}

// List returns the session's bookings in submission order. An unreadable
// list is discarded and treated as empty.
func (s *DraftStore) List(ctx context.Context, sid string) ([]Booking, error) {
	data, err := s.cache.Load(ctx, sid+listSuffix)
	if errors.Is(err, session.ErrCacheMiss) {
		return []Booking{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	var list []Booking
	if err := json.Unmarshal(data, &list); err != nil {
		s.log.Warn("discarding unreadable booking list", zap.String("sid", sid), zap.Error(err))
		s.discard(ctx, sid+listSuffix)
		return []Booking{}, nil
	}
	if list == nil {
		list = []Booking{}
	}
	return list, nil
}

func (s *DraftStore) Latest(ctx context.Context, sid string) (Booking, error) {
	data, err := s.cache.Load(ctx, sid+latestSuffix)
	if errors.Is(err, session.ErrCacheMiss) {
		return Booking{}, ErrNoDraft
	}
	if err != nil {
		return Booking{}, fmt.Errorf("load latest booking: %w", err)
	}

	var b Booking
	if err := json.Unmarshal(data, &b); err != nil {
		s.log.Warn("discarding unreadable latest booking", zap.String("sid", sid), zap.Error(err))
		s.discard(ctx, sid+latestSuffix)
		return Booking{}, ErrNoDraft
	}
	return b, nil
}

func (s *DraftStore) discard(ctx context.Context, key string) {
	if err := s.cache.Remove(ctx, key); err != nil {
		s.log.Warn("remove unreadable booking failed", zap.String("key", key), zap.Error(err))
	}
}

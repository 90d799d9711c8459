package identity

import (
	"context"
	"strings"
	"sync"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	SaveOTP(ctx context.Context, otp OTP) error
	// ConsumeOTP removes and returns the matching token. It returns
	// ErrInvalidOTP when no token matches.
	ConsumeOTP(ctx context.Context, tokenHash string, typ OTPType) (OTP, error)
}

type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
	otps     map[string]OTP
}

func NewInMemoryRepository(seed []Account) *InMemoryRepository {
	repo := &InMemoryRepository{
		accounts: make(map[string]Account, len(seed)),
		otps:     make(map[string]OTP),
	}
	for _, a := range seed {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.ID == account.ID || strings.EqualFold(a.Email, account.Email) {
			return Account{}, ErrEmailExists
		}
	}
	r.accounts[account.ID] = account
	return account, nil
}

func (r *InMemoryRepository) Update(_ context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return Account{}, ErrNotFound
	}
	r.accounts[account.ID] = account
	return account, nil
}

func (r *InMemoryRepository) SaveOTP(_ context.Context, otp OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.otps[otp.TokenHash] = otp
	return nil
}

func (r *InMemoryRepository) ConsumeOTP(_ context.Context, tokenHash string, typ OTPType) (OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	otp, ok := r.otps[tokenHash]
	if !ok || otp.Type != typ {
		return OTP{}, ErrInvalidOTP
	}
	delete(r.otps, tokenHash)
	return otp, nil
}

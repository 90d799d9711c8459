package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

type Config struct {
	JWTSecret           string
	TokenTTL            time.Duration
	OTPTTL              time.Duration
	RequireEmailConfirm bool
	// SiteURL is the public origin used to build verification links.
	SiteURL string
}

// Service is the identity provider: it owns accounts, passwords, emailed
// verification links and access tokens.
type Service struct {
	repo   Repository
	mailer Mailer
	cfg    Config
	log    *zap.Logger
	now    func() time.Time

	oauth       *oauth2.Config
	userInfoURL string
}

func NewService(repo Repository, mailer Mailer, cfg Config, log *zap.Logger) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 24 * time.Hour
	}
	return &Service{
		repo:   repo,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SignUp registers an email/password account. When confirmation is required
// the account stays unconfirmed until the emailed signup link is verified.
func (s *Service) SignUp(ctx context.Context, email, password string, metadata map[string]string) (User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        metadata["phone"],
		PasswordHash: string(hashed),
		Provider:     ProviderEmail,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !s.cfg.RequireEmailConfirm {
		account.ConfirmedAt = &now
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return User{}, err
	}
	s.log.Info("account created", zap.String("account_id", created.ID), zap.String("email", created.Email))

	if s.cfg.RequireEmailConfirm {
		if err := s.sendLink(ctx, created, OTPSignup, "/", "Confirm your signup"); err != nil {
			return created.User(), fmt.Errorf("send confirmation: %w", err)
		}
	}
	return created.User(), nil
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	account, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if account.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	if s.cfg.RequireEmailConfirm && account.ConfirmedAt == nil {
		return Session{}, ErrEmailNotConfirmed
	}
	return s.issueSession(account.User())
}

// VerifyOTP consumes an emailed token_hash of the given type, confirms the
// account and signs it in.
func (s *Service) VerifyOTP(ctx context.Context, tokenHash string, typ OTPType) (Session, error) {
	otp, err := s.repo.ConsumeOTP(ctx, tokenHash, typ)
	if err != nil {
		return Session{}, err
	}
	if s.now().After(otp.ExpiresAt) {
		return Session{}, ErrInvalidOTP
	}

	account, err := s.repo.GetByID(ctx, otp.AccountID)
	if err != nil {
		return Session{}, err
	}
	if account.ConfirmedAt == nil {
		now := s.now()
		account.ConfirmedAt = &now
		if account, err = s.repo.Update(ctx, account); err != nil {
			return Session{}, err
		}
	}
	return s.issueSession(account.User())
}

// SendPasswordRecovery mails a recovery link. Unknown addresses are ignored
// so callers cannot probe which emails are registered.
func (s *Service) SendPasswordRecovery(ctx context.Context, email string) error {
	account, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return s.sendLink(ctx, account, OTPRecovery, "/profile", "Reset your password")
}

func (s *Service) UpdatePassword(ctx context.Context, id, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	account.PasswordHash = string(hashed)
	_, err = s.repo.Update(ctx, account)
	return err
}

// GetUser returns the identity and the metadata attached at signup.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	return account.User(), nil
}

func (s *Service) issueSession(user User) (Session, error) {
	token, expiresAt, err := signToken(s.cfg.JWTSecret, user, s.now(), s.cfg.TokenTTL)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) sendLink(ctx context.Context, account Account, typ OTPType, redirectTo, subject string) error {
	tokenHash, err := newTokenHash()
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.repo.SaveOTP(ctx, OTP{
		TokenHash: tokenHash,
		AccountID: account.ID,
		Type:      typ,
		ExpiresAt: now.Add(s.cfg.OTPTTL),
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	q := url.Values{}
	q.Set("token_hash", tokenHash)
	q.Set("type", string(typ))
	q.Set("redirect_to", redirectTo)
	link := s.cfg.SiteURL + "/auth/confirm?" + q.Encode()

	body := fmt.Sprintf(`<p>Follow this link to continue:</p><p><a href="%s">%s</a></p>`, link, link)
	if err := s.mailer.Send(ctx, account.Email, subject, body); err != nil {
		s.log.Error("verification mail failed", zap.String("account_id", account.ID), zap.String("type", string(typ)), zap.Error(err))
		return err
	}
	return nil
}

func newTokenHash() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// WithGoogle enables the Google OAuth code flow.
func (s *Service) WithGoogle(clientID, clientSecret, redirectURL string) *Service {
	return s.WithOAuth(&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}, googleUserInfoURL)
}

// WithOAuth enables an OpenID style provider with an explicit userinfo
// endpoint.
func (s *Service) WithOAuth(conf *oauth2.Config, userInfoURL string) *Service {
	s.oauth = conf
	s.userInfoURL = userInfoURL
	return s
}

// GoogleAuthURL returns the provider consent URL carrying state.
func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// SignInWithGoogle exchanges the authorization code, finds or creates the
// account matching the provider email and signs it in.
func (s *Service) SignInWithGoogle(ctx context.Context, code string) (Session, error) {
	if s.oauth == nil {
		return Session{}, ErrOAuthDisabled
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return Session{}, fmt.Errorf("%w: exchange: %v", ErrInvalidCredentials, err)
	}
	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if info.Email == "" {
		return Session{}, fmt.Errorf("%w: provider returned no email", ErrInvalidCredentials)
	}
	if !info.EmailVerified {
		return Session{}, fmt.Errorf("%w: provider email not verified", ErrInvalidCredentials)
	}

	email := normalizeEmail(info.Email)
	account, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if account.ConfirmedAt == nil {
			// unconfirmed signups are taken over by the verified mailbox owner
			now := s.now()
			account.ConfirmedAt = &now
			account.PasswordHash = ""
			account.Metadata = googleMetadata(info)
			account.UpdatedAt = now
			if account, err = s.repo.Update(ctx, account); err != nil {
				return Session{}, err
			}
		}
	case errors.Is(err, ErrNotFound):
		now := s.now()
		account = Account{
			ID:          uuid.NewString(),
			Email:       email,
			Provider:    ProviderGoogle,
			Metadata:    googleMetadata(info),
			ConfirmedAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if account, err = s.repo.Create(ctx, account); err != nil {
			return Session{}, err
		}
		s.log.Info("account created via oauth", zap.String("account_id", account.ID), zap.String("provider", ProviderGoogle))
	default:
		return Session{}, err
	}

	return s.issueSession(account.User())
}

func googleMetadata(info userInfo) map[string]string {
	return map[string]string{
		"first_name":   info.GivenName,
		"last_name":    info.FamilyName,
		"display_name": info.Name,
		"avatar_url":   info.Picture,
	}
}

func (s *Service) fetchUserInfo(ctx context.Context, token *oauth2.Token) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return userInfo{}, err
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return userInfo{}, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return userInfo{}, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}
	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return userInfo{}, fmt.Errorf("userinfo: %w", err)
	}
	return info, nil
}

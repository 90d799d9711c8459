package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type captureMailer struct {
	to    []string
	links []string
}

var linkPattern = regexp.MustCompile(`href="([^"]+)"`)

func (m *captureMailer) Send(_ context.Context, to, _, body string) error {
	m.to = append(m.to, to)
	if match := linkPattern.FindStringSubmatch(body); match != nil {
		m.links = append(m.links, match[1])
	}
	return nil
}

func (m *captureMailer) lastTokenHash(t *testing.T) (string, string) {
	t.Helper()
	if len(m.links) == 0 {
		t.Fatalf("no link was mailed")
	}
	u, err := url.Parse(m.links[len(m.links)-1])
	if err != nil {
		t.Fatalf("mailed link is not a url: %v", err)
	}
	return u.Query().Get("token_hash"), u.Query().Get("type")
}

func newTestService(requireConfirm bool) (*Service, *InMemoryRepository, *captureMailer) {
	repo := NewInMemoryRepository(nil)
	mailer := &captureMailer{}
	svc := NewService(repo, mailer, Config{
		JWTSecret:           "test-secret",
		RequireEmailConfirm: requireConfirm,
		SiteURL:             "http://chefs.test",
	}, zap.NewNop())
	return svc, repo, mailer
}

func TestSignUpConfirmAndSignIn(t *testing.T) {
	svc, _, mailer := newTestService(true)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "  Asha@Example.com ", "secret1", map[string]string{"first_name": "Asha", "role": "chef"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user.Email != "asha@example.com" {
		t.Fatalf("email not normalised: %q", user.Email)
	}
	if user.ConfirmedAt != nil {
		t.Fatalf("account should start unconfirmed")
	}

	if _, err := svc.SignInWithPassword(ctx, "asha@example.com", "secret1"); !errors.Is(err, ErrEmailNotConfirmed) {
		t.Fatalf("expected ErrEmailNotConfirmed, got %v", err)
	}

	tokenHash, typ := mailer.lastTokenHash(t)
	if typ != string(OTPSignup) {
		t.Fatalf("expected signup link, got type %q", typ)
	}
	if !strings.HasPrefix(mailer.links[0], "http://chefs.test/auth/confirm?") {
		t.Fatalf("unexpected link %s", mailer.links[0])
	}

	sess, err := svc.VerifyOTP(ctx, tokenHash, OTPSignup)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if sess.User.ConfirmedAt == nil {
		t.Fatalf("verification should confirm the account")
	}

	// tokens are single use
	if _, err := svc.VerifyOTP(ctx, tokenHash, OTPSignup); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected reused token to be rejected, got %v", err)
	}

	sess, err = svc.SignInWithPassword(ctx, "ASHA@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	parsed, err := jwt.Parse(sess.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("access token invalid: %v", err)
	}
	if sub := parsed.Claims.(jwt.MapClaims)["sub"]; sub != user.ID {
		t.Fatalf("expected sub %s, got %v", user.ID, sub)
	}

	got, err := svc.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if got.Metadata["role"] != "chef" || got.Metadata["first_name"] != "Asha" {
		t.Fatalf("metadata not preserved: %+v", got.Metadata)
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc, _, _ := newTestService(false)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "not-an-email", "secret1", nil); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@example.com", "123", nil); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "a@example.com", "secret1", nil); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.SignUp(ctx, "A@example.com", "secret1", nil); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	if _, err := svc.SignInWithPassword(ctx, "a@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignInWithPassword(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
}

func TestVerifyOTP_ExpiredAndWrongType(t *testing.T) {
	svc, _, mailer := newTestService(true)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "late@example.com", "secret1", nil); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	tokenHash, _ := mailer.lastTokenHash(t)

	if _, err := svc.VerifyOTP(ctx, tokenHash, OTPRecovery); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected wrong type to be rejected, got %v", err)
	}

	svc.now = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }
	if _, err := svc.VerifyOTP(ctx, tokenHash, OTPSignup); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestPasswordRecovery(t *testing.T) {
	svc, _, mailer := newTestService(false)
	ctx := context.Background()

	if err := svc.SendPasswordRecovery(ctx, "ghost@example.com"); err != nil {
		t.Fatalf("unknown email should be ignored, got %v", err)
	}
	if len(mailer.links) != 0 {
		t.Fatalf("no mail expected for unknown email")
	}

	user, err := svc.SignUp(ctx, "cook@example.com", "secret1", nil)
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if err := svc.SendPasswordRecovery(ctx, "cook@example.com"); err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	tokenHash, typ := mailer.lastTokenHash(t)
	if typ != string(OTPRecovery) {
		t.Fatalf("expected recovery link, got %q", typ)
	}
	if _, err := svc.VerifyOTP(ctx, tokenHash, OTPRecovery); err != nil {
		t.Fatalf("verify recovery failed: %v", err)
	}
	if err := svc.UpdatePassword(ctx, user.ID, "newsecret"); err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if _, err := svc.SignInWithPassword(ctx, "cook@example.com", "newsecret"); err != nil {
		t.Fatalf("sign in with new password failed: %v", err)
	}
}

func TestSignInWithGoogle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "provider-token", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(userInfo{Sub: "g-1", Email: "Meera@Example.com", EmailVerified: true, Name: "Meera Singh", GivenName: "Meera", FamilyName: "Singh"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, repo, _ := newTestService(true)
	if _, err := svc.GoogleAuthURL("x"); !errors.Is(err, ErrOAuthDisabled) {
		t.Fatalf("expected ErrOAuthDisabled before configuration, got %v", err)
	}
	svc.WithOAuth(&oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://chefs.test/auth/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}, srv.URL+"/userinfo")

	authURL, err := svc.GoogleAuthURL("state-123")
	if err != nil || !strings.Contains(authURL, "state=state-123") {
		t.Fatalf("unexpected auth url %q (%v)", authURL, err)
	}

	ctx := context.Background()
	sess, err := svc.SignInWithGoogle(ctx, "code")
	if err != nil {
		t.Fatalf("google sign in failed: %v", err)
	}
	if sess.User.Email != "meera@example.com" || sess.User.Provider != ProviderGoogle {
		t.Fatalf("unexpected user %+v", sess.User)
	}
	if sess.User.Metadata["display_name"] != "Meera Singh" {
		t.Fatalf("metadata not populated: %+v", sess.User.Metadata)
	}

	again, err := svc.SignInWithGoogle(ctx, "code")
	if err != nil {
		t.Fatalf("second google sign in failed: %v", err)
	}
	if again.User.ID != sess.User.ID {
		t.Fatalf("second sign in should reuse the account")
	}
	if len(repo.accounts) != 1 {
		t.Fatalf("expected one account, got %d", len(repo.accounts))
	}
}

func withGoogleStub(t *testing.T, svc *Service, info userInfo) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "provider-token", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc.WithOAuth(&oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}, srv.URL+"/userinfo")
}

func TestSignInWithGoogle_RejectsUnverifiedEmail(t *testing.T) {
	svc, repo, _ := newTestService(false)
	ctx := context.Background()
	victim, err := svc.SignUp(ctx, "victim@example.com", "correct-horse", nil)
	if err != nil {
		t.Fatalf("seed sign up failed: %v", err)
	}

	withGoogleStub(t, svc, userInfo{Sub: "g-2", Email: "victim@example.com", EmailVerified: false})
	sess, err := svc.SignInWithGoogle(ctx, "code")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got err=%v signed in as %q", err, sess.User.ID)
	}

	withGoogleStub(t, svc, userInfo{Sub: "g-3", Email: "new@example.com"})
	if _, err := svc.SignInWithGoogle(ctx, "code"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unverified email must not create an account, got %v", err)
	}
	if len(repo.accounts) != 1 {
		t.Fatalf("expected only the seeded account, got %d", len(repo.accounts))
	}
	if _, err := svc.SignInWithPassword(ctx, "victim@example.com", "correct-horse"); err != nil {
		t.Fatalf("victim account should be untouched: %v (%s)", err, victim.ID)
	}
}

func TestSignInWithGoogle_UnconfirmedSignupLosesPassword(t *testing.T) {
	svc, _, _ := newTestService(true)
	ctx := context.Background()
	squatted, err := svc.SignUp(ctx, "owner@example.com", "attacker-pass", map[string]string{"role": "chef"})
	if err != nil {
		t.Fatalf("seed sign up failed: %v", err)
	}

	withGoogleStub(t, svc, userInfo{Sub: "g-4", Email: "owner@example.com", EmailVerified: true, Name: "Real Owner"})
	sess, err := svc.SignInWithGoogle(ctx, "code")
	if err != nil {
		t.Fatalf("verified google sign in failed: %v", err)
	}
	if sess.User.ID != squatted.ID || sess.User.Metadata["role"] != "" || sess.User.Metadata["display_name"] != "Real Owner" {
		t.Fatalf("unexpected linked user %+v", sess.User)
	}
	if _, err := svc.SignInWithPassword(ctx, "owner@example.com", "attacker-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unconfirmed password must not survive the link, got %v", err)
	}
}

// Package auth gates the API behind Google sign-in. It is optional: when
// disabled, the server mounts none of it.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/cardscan/internal/config"
	"github.com/ignite/cardscan/internal/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie        = "oauth_state"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleUserInfo represents the user info returned by Google
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HD            string `json:"hd"` // Hosted domain (Workspace domain)
}

// Session represents an authenticated user session
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthManager handles Google OAuth authentication
type AuthManager struct {
	config       config.AuthConfig
	oauth2Config *oauth2.Config
	sessions     SessionStore
	userInfoURL  string
}

// NewAuthManager creates a new authentication manager. sessions may be
// nil, in which case sessions live in process memory.
func NewAuthManager(cfg config.AuthConfig, baseURL string, sessions SessionStore) *AuthManager {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = strings.TrimRight(baseURL, "/") + "/auth/callback"
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	return &AuthManager{
		config: cfg,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  redirect,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		sessions:    sessions,
		userInfoURL: defaultUserInfoURL,
	}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HandleLogin initiates the Google OAuth flow
func (am *AuthManager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if am.config.AllowedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", am.config.AllowedDomain))
	}
	http.Redirect(w, r, am.oauth2Config.AuthCodeURL(state, opts...), http.StatusTemporaryRedirect)
}

// HandleCallback processes the OAuth callback from Google
func (am *AuthManager) HandleCallback(w http.ResponseWriter, r *http.Request) {
	fail := func(reason string, kv ...interface{}) {
		logger.Warn("auth callback rejected", append([]interface{}{"reason", reason}, kv...)...)
		http.Redirect(w, r, "/?error="+reason, http.StatusTemporaryRedirect)
	}

	c, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != c.Value {
		fail("invalid_state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		fail("provider_error", "provider_error", errMsg)
		return
	}

	ctx := r.Context()
	token, err := am.oauth2Config.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		fail("exchange_failed", "error", err)
		return
	}

	info, err := am.getUserInfo(ctx, token)
	if err != nil {
		fail("userinfo_failed", "error", err)
		return
	}

	if am.config.AllowedDomain != "" {
		_, domain, ok := strings.Cut(info.Email, "@")
		if !ok || !strings.EqualFold(domain, am.config.AllowedDomain) {
			fail("domain_not_allowed", "email", info.Email)
			return
		}
	}

	sessionID, err := randomToken()
	if err != nil {
		fail("session_failed", "error", err)
		return
	}
	now := time.Now()
	session := &Session{
		UserID:    info.ID,
		Email:     info.Email,
		Name:      info.Name,
		Picture:   info.Picture,
		Domain:    info.HD,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(am.config.CookieMaxAge) * time.Second),
	}
	if err := am.sessions.Save(ctx, sessionID, session); err != nil {
		fail("session_failed", "error", err)
		return
	}

	logger.Info("user logged in", "email", info.Email)

	http.SetCookie(w, &http.Cookie{
		Name:     am.config.CookieName,
		Value:    am.signSessionID(sessionID),
		Path:     "/",
		MaxAge:   am.config.CookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// HandleLogout logs out the user
func (am *AuthManager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id := am.sessionID(r); id != "" {
		if err := am.sessions.Delete(r.Context(), id); err != nil {
			logger.Warn("session delete failed", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{Name: am.config.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// HandleUserInfo returns the current user's info as JSON
func (am *AuthManager) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	session := am.GetSession(r)
	if session == nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"authenticated": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": true,
		"user": map[string]string{
			"id":      session.UserID,
			"email":   session.Email,
			"name":    session.Name,
			"picture": session.Picture,
			"domain":  session.Domain,
		},
	})
}

// GetSession returns the session for the current request, or nil if not authenticated
func (am *AuthManager) GetSession(r *http.Request) *Session {
	id := am.sessionID(r)
	if id == "" {
		return nil
	}
	session, err := am.sessions.Get(r.Context(), id)
	if err != nil {
		logger.Warn("session lookup failed", "error", err)
		return nil
	}
	if session == nil {
		return nil
	}
	if time.Now().After(session.ExpiresAt) {
		_ = am.sessions.Delete(r.Context(), id)
		return nil
	}
	return session
}

// signSessionID appends an HMAC of the id when a session secret is set.
func (am *AuthManager) signSessionID(id string) string {
	if am.config.SessionSecret == "" {
		return id
	}
	mac := hmac.New(sha256.New, []byte(am.config.SessionSecret))
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// sessionID reads the session cookie and returns the verified id, or "".
func (am *AuthManager) sessionID(r *http.Request) string {
	c, err := r.Cookie(am.config.CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	if am.config.SessionSecret == "" {
		return c.Value
	}
	id, _, ok := strings.Cut(c.Value, ".")
	if !ok || !hmac.Equal([]byte(am.signSessionID(id)), []byte(c.Value)) {
		return ""
	}
	return id
}

// RequireAuth is middleware that rejects unauthenticated API requests.
// Auth and health endpoints stay open.
func (am *AuthManager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.HasPrefix(p, "/auth/") || p == "/health" || strings.HasPrefix(p, "/health/") {
			next.ServeHTTP(w, r)
			return
		}
		if am.GetSession(r) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getUserInfo fetches the user's profile with the exchanged token.
func (am *AuthManager) getUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := am.oauth2Config.Client(ctx, token).Get(am.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API error: %s", string(body))
	}

	var info GoogleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse user info: %w", err)
	}
	return &info, nil
}

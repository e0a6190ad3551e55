// Package spotify implements the remote player backend's credential lifecycle
// and Web API client. Authorization uses the OAuth2 PKCE flow, so no client
// secret is ever stored.
package spotify

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultAuthorizeURL = "https://accounts.spotify.com/authorize"
	defaultTokenURL     = "https://accounts.spotify.com/api/token"

	// The three capabilities the player control surface needs, nothing more.
	scopes = "user-read-playback-state user-modify-playback-state user-read-currently-playing"

	verifierLength = 128
	stateLength    = 16
)

const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// ErrNoToken is returned when no usable access token exists and none can be
// obtained without user interaction.
var ErrNoToken = errors.New("no usable spotify token")

// Notifier receives user-visible credential notices ("session expired").
// Invoked at most once per credential failure, never once per poll.
type Notifier func(message string)

// authSession is the ephemeral state of one authorization attempt. It lives
// from BeginAuthorization until the code exchange completes or the attempt is
// abandoned.
type authSession struct {
	verifier string
	state    string
}

// refreshCall lets concurrent callers share one in-flight token refresh.
// Spotify may invalidate the first refresh token the moment a duplicate
// refresh request lands, so there must never be two.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// TokenManager owns the TokenSet and runs the PKCE authorization and refresh
// flows. Its accessor returns a valid token or nothing; callers treat
// "nothing" as the remote backend being unusable right now, not as fatal.
type TokenManager struct {
	clientID     string
	redirectURI  string
	authorizeURL string
	tokenURL     string
	store        Store
	httpClient   *http.Client
	logger       *logrus.Entry
	notify       Notifier

	mu       sync.Mutex
	tokens   TokenSet
	session  *authSession
	invalid  bool
	inFlight *refreshCall
	now      func() time.Time
}

// NewTokenManager creates a token manager, loading any persisted tokens
func NewTokenManager(clientID, redirectURI string, store Store, logger *logrus.Logger, notify Notifier) (*TokenManager, error) {
	tokens, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted tokens: %w", err)
	}

	if notify == nil {
		notify = func(string) {}
	}

	return &TokenManager{
		clientID:     clientID,
		redirectURI:  redirectURI,
		authorizeURL: defaultAuthorizeURL,
		tokenURL:     defaultTokenURL,
		store:        store,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       logger.WithField("component", "spotify-auth"),
		notify:       notify,
		tokens:       tokens,
		now:          time.Now,
	}, nil
}

// Authenticated reports whether any credential state exists at all
func (m *TokenManager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.tokens.Empty() && !m.invalid
}

// BeginAuthorization starts a fresh PKCE authorization attempt and returns
// the URL the user must open. Any previous attempt is discarded.
func (m *TokenManager) BeginAuthorization() (string, error) {
	if m.clientID == "" {
		return "", fmt.Errorf("spotify client ID is not configured")
	}

	verifier, err := randomString(verifierCharset, verifierLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	state, err := randomString(verifierCharset, stateLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}

	m.mu.Lock()
	m.session = &authSession{verifier: verifier, state: state}
	m.mu.Unlock()

	challenge := deriveChallenge(verifier)

	query := url.Values{}
	query.Set("client_id", m.clientID)
	query.Set("response_type", "code")
	query.Set("redirect_uri", m.redirectURI)
	query.Set("scope", scopes)
	query.Set("code_challenge_method", "S256")
	query.Set("code_challenge", challenge)
	query.Set("state", state)

	return m.authorizeURL + "?" + query.Encode(), nil
}

// Exchange trades an authorization code for a token pair. The code must
// belong to the current authorization session; a stale or forged state nonce
// is rejected. New tokens are persisted before the method returns.
func (m *TokenManager) Exchange(ctx context.Context, code, state string) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil {
		return fmt.Errorf("no authorization attempt in progress")
	}
	if state != session.state {
		return fmt.Errorf("authorization state mismatch")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", m.redirectURI)
	form.Set("client_id", m.clientID)
	form.Set("code_verifier", session.verifier)

	tokens, err := m.requestToken(ctx, form)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	if err := m.store.Save(tokens); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	m.mu.Lock()
	m.tokens = tokens
	m.session = nil
	m.invalid = false
	m.mu.Unlock()

	m.logger.Info("Spotify authorization complete")
	return nil
}

// AccessToken returns a currently valid access token, refreshing it first if
// it is within the expiry skew. Returns ErrNoToken when the remote backend is
// unusable; callers must not treat that as fatal.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()

	if m.invalid || m.tokens.Empty() {
		m.mu.Unlock()
		return "", ErrNoToken
	}
	if m.tokens.UsableAt(m.now()) {
		token := m.tokens.AccessToken
		m.mu.Unlock()
		return token, nil
	}
	if m.tokens.RefreshToken == "" {
		m.mu.Unlock()
		return "", ErrNoToken
	}

	// Join an in-flight refresh instead of issuing a duplicate.
	if call := m.inFlight; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if call.err != nil {
			return "", call.err
		}
		return call.token, nil
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inFlight = call
	refreshToken := m.tokens.RefreshToken
	m.mu.Unlock()

	token, err := m.refresh(ctx, refreshToken)
	call.token = token
	call.err = err
	close(call.done)

	m.mu.Lock()
	m.inFlight = nil
	m.mu.Unlock()

	return token, err
}

// refresh exchanges the refresh token for a fresh access token. On failure
// the manager transitions to the invalid state and notifies the user exactly
// once; re-authorization is the only way out.
func (m *TokenManager) refresh(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", m.clientID)

	tokens, err := m.requestToken(ctx, form)
	if err != nil {
		m.logger.WithError(err).Warn("Spotify token refresh failed")
		m.mu.Lock()
		wasInvalid := m.invalid
		m.invalid = true
		m.mu.Unlock()
		if !wasInvalid {
			m.notify("Spotify session expired. Please reconnect your account.")
		}
		return "", ErrNoToken
	}

	// Spotify may omit a new refresh token; keep the old one then.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	// Persist before handing the token to the caller so nobody observes a
	// token a concurrent restart would have already lost.
	if err := m.store.Save(tokens); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()

	m.logger.Debug("Spotify access token refreshed")
	return tokens.AccessToken, nil
}

// Disconnect clears all credential state, in memory and on disk
func (m *TokenManager) Disconnect() error {
	m.mu.Lock()
	m.tokens = TokenSet{}
	m.session = nil
	m.invalid = false
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear token store: %w", err)
	}

	m.logger.Info("Spotify account disconnected")
	return nil
}

// tokenResponse is the token endpoint's JSON shape
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// requestToken posts a form to the token endpoint and maps the response
func (m *TokenManager) requestToken(ctx context.Context, form url.Values) (TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenSet{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return TokenSet{}, err
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return TokenSet{}, fmt.Errorf("malformed token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if body.Error != "" {
			return TokenSet{}, fmt.Errorf("token endpoint returned %d: %s (%s)", resp.StatusCode, body.Error, body.ErrorDesc)
		}
		return TokenSet{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	if body.AccessToken == "" {
		return TokenSet{}, fmt.Errorf("token endpoint returned no access token")
	}

	return TokenSet{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAtMs:  m.now().Add(time.Duration(body.ExpiresIn) * time.Second).UnixMilli(),
	}, nil
}

// deriveChallenge computes the S256 code challenge for a verifier:
// URL-safe base64 of SHA-256, without padding.
func deriveChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// randomString draws n characters from the given charset
func randomString(charset string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = charset[int(b)%len(charset)]
	}
	return string(out), nil
}

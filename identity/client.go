package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// Config configures a [Client].
type Config struct {
	// URL is the project base URL; requests go to URL + "/auth/v1/...".
	URL     string
	AnonKey string
	Timeout time.Duration
	// AutoRefresh makes GetSession exchange the refresh token of an expired session.
	AutoRefresh bool
	// ExpiryMargin treats a token as expired this long before its exp claim.
	ExpiryMargin time.Duration

	HTTPClient *http.Client
	Now        func() time.Time
}

// Client talks to the provider's auth REST API and owns the current session.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	store   Storage
	now     func() time.Time
}

// New validates cfg and returns a client persisting its session in store.
func New(cfg Config, store Storage) (*Client, error) {
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" {
		return nil, errors.New("identity: provider url required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("identity: invalid provider url: %w", err)
	}
	cfg.AnonKey = strings.TrimSpace(cfg.AnonKey)
	if cfg.AnonKey == "" {
		return nil, errors.New("identity: anon key required")
	}
	if store == nil {
		return nil, errors.New("identity: session storage required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ExpiryMargin < 0 {
		cfg.ExpiryMargin = 0
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		cfg:     cfg,
		baseURL: cfg.URL + "/auth/v1",
		http:    hc,
		store:   store,
		now:     now,
	}, nil
}

// SignUp registers a new identity. When the provider returns a session
// (auto-confirm), it becomes the current session.
func (c *Client) SignUp(ctx context.Context, p SignUpParams) (*SignUpResult, error) {
	q := url.Values{}
	if p.EmailRedirectTo != "" {
		q.Set("redirect_to", p.EmailRedirectTo)
	}
	body := map[string]any{
		"email":    p.Email,
		"password": p.Password,
	}
	if len(p.Data) > 0 {
		body["data"] = p.Data
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", q, "", body, &raw); err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	if sess.AccessToken != "" {
		c.normalize(&sess)
		if err := c.store.Save(ctx, &sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		user := sess.User
		return &SignUpResult{User: &user, Session: &sess}, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode signup user: %w", err)
	}
	return &SignUpResult{User: &user}, nil
}

// SignInWithPassword exchanges credentials for a session and stores it.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	q := url.Values{"grant_type": {"password"}}
	var sess Session
	err := c.do(ctx, http.MethodPost, "/token", q, "", map[string]string{
		"email":    email,
		"password": password,
	}, &sess)
	if err != nil {
		return nil, err
	}
	if sess.AccessToken == "" {
		return nil, errors.New("identity: token response without access token")
	}
	c.normalize(&sess)
	if err := c.store.Save(ctx, &sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &sess, nil
}

// GetSession returns the current session, or (nil, nil) when there is none.
// An expired session is refreshed when AutoRefresh is on; if that is not
// possible the stored session is dropped and reported absent.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.AccessToken == "" {
		return nil, nil
	}
	if !sess.Expired(c.now(), c.cfg.ExpiryMargin) {
		return sess, nil
	}

	if c.cfg.AutoRefresh && sess.RefreshToken != "" {
		fresh, err := c.refresh(ctx, sess.RefreshToken)
		if err == nil {
			if err := c.store.Save(ctx, fresh); err != nil {
				return nil, fmt.Errorf("save session: %w", err)
			}
			return fresh, nil
		}
	}

	if err := c.store.Remove(ctx); err != nil {
		return nil, fmt.Errorf("remove expired session: %w", err)
	}
	return nil, nil
}

// SetSession adopts an externally obtained token pair as the current session.
// The user record is fetched with the access token; an already expired access
// token is exchanged through the refresh token instead.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}
	_, exp, err := tokenClaims(accessToken)
	if err != nil {
		return nil, err
	}

	now := c.now()
	if exp != 0 && now.Add(c.cfg.ExpiryMargin).Unix() >= exp {
		if refreshToken == "" {
			return nil, &Error{Status: http.StatusUnauthorized, Code: "session_expired", Message: "session expired"}
		}
		fresh, err := c.refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if err := c.store.Save(ctx, fresh); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return fresh, nil
	}

	user, err := c.fetchUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
		ExpiresAt:    exp,
		User:         *user,
	}
	if exp != 0 {
		sess.ExpiresIn = exp - now.Unix()
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// GetUser fetches the user record for the current session.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionMissing
	}
	return c.fetchUser(ctx, sess.AccessToken)
}

// AccessToken returns the bearer token of the current session, or "" when
// there is no live session.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	return sess.AccessToken, nil
}

// SignOut revokes the current session at the provider and removes it locally.
// Local removal happens even when the provider call fails.
func (c *Client) SignOut(ctx context.Context) error {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var remoteErr error
	if sess != nil && sess.AccessToken != "" {
		remoteErr = c.do(ctx, http.MethodPost, "/logout", nil, sess.AccessToken, nil, nil)
		var perr *Error
		if errors.As(remoteErr, &perr) && (perr.Status == http.StatusUnauthorized || perr.Status == http.StatusNotFound) {
			remoteErr = nil
		}
	}

	if err := c.store.Remove(ctx); err != nil {
		return errors.Join(remoteErr, fmt.Errorf("remove session: %w", err))
	}
	return remoteErr
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	q := url.Values{"grant_type": {"refresh_token"}}
	var sess Session
	err := c.do(ctx, http.MethodPost, "/token", q, "", map[string]string{
		"refresh_token": refreshToken,
	}, &sess)
	if err != nil {
		return nil, err
	}
	if sess.AccessToken == "" {
		return nil, errors.New("identity: refresh response without access token")
	}
	c.normalize(&sess)
	return &sess, nil
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("identity: user response without id")
	}
	return &user, nil
}

// normalize fills ExpiresAt from the token or expires_in when the provider
// omitted it.
func (c *Client) normalize(s *Session) {
	if s.ExpiresAt != 0 {
		return
	}
	if _, exp, err := tokenClaims(s.AccessToken); err == nil && exp != 0 {
		s.ExpiresAt = exp
		return
	}
	if s.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Unix() + s.ExpiresIn
	}
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, token string, in any, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if token == "" {
		token = c.cfg.AnonKey
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb providerErrorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.message()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = fmt.Sprintf("identity provider returned %d", resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Code: eb.code(), Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

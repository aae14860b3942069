// Package verification is the HTTP client for the out-of-band one-time-code
// service: one endpoint sends a code to a phone, another checks a submitted code.
//
// Requests carry the caller's live access token. The response status alone
// decides success; JSON bodies are decoded for diagnostics and error text, any
// other body is kept as raw text.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultSendPath   = "/functions/v1/send-verification-code"
	DefaultVerifyPath = "/functions/v1/verify-code"

	maxBodyBytes = 64 << 10
)

// ErrNoSession is returned when no access token is available for the call.
var ErrNoSession = errors.New("no access token available, please login again")

// TokenSource yields the bearer token of the current session, or "" when
// there is no live session.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// Response is the decoded reply of the verification service.
type Response struct {
	Status      int
	ContentType string
	// JSON is set when the body was application/json and decoded cleanly.
	JSON map[string]any
	// Raw holds the body text when it was not decodable JSON.
	Raw string
}

// ErrorField returns the string "error" field of a JSON body.
func (r *Response) ErrorField() string {
	if r == nil || r.JSON == nil {
		return ""
	}
	s, _ := r.JSON["error"].(string)
	return strings.TrimSpace(s)
}

// ChannelError reports a failed send or verify. Status is 0 for transport
// failures.
type ChannelError struct {
	Op       string
	Status   int
	Message  string
	Response *Response
	Err      error
}

func (e *ChannelError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ChannelError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Config configures a [Channel].
type Config struct {
	BaseURL    string
	SendPath   string
	VerifyPath string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Channel calls the verification service.
type Channel struct {
	sendURL   string
	verifyURL string
	http      *http.Client
	tokens    TokenSource
}

func New(cfg Config, tokens TokenSource) (*Channel, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("verification: base url required")
	}
	if tokens == nil {
		return nil, errors.New("verification: token source required")
	}
	if cfg.SendPath == "" {
		cfg.SendPath = DefaultSendPath
	}
	if cfg.VerifyPath == "" {
		cfg.VerifyPath = DefaultVerifyPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Channel{
		sendURL:   base + "/" + strings.TrimLeft(cfg.SendPath, "/"),
		verifyURL: base + "/" + strings.TrimLeft(cfg.VerifyPath, "/"),
		http:      hc,
		tokens:    tokens,
	}, nil
}

// SendCode asks the service to deliver a one-time code to phone.
func (c *Channel) SendCode(ctx context.Context, phone string) (*Response, error) {
	resp, err := c.post(ctx, "send", c.sendURL, map[string]string{"phone": phone})
	if err != nil {
		return resp, err
	}
	if !ok(resp.Status) {
		return resp, &ChannelError{
			Op:       "send",
			Status:   resp.Status,
			Message:  fmt.Sprintf("failed to send verification code (%d)", resp.Status),
			Response: resp,
		}
	}
	return resp, nil
}

// VerifyCode submits code for phone. A non-2xx reply means the code was
// rejected; its JSON "error" field becomes the message when present.
func (c *Channel) VerifyCode(ctx context.Context, phone, code string) (*Response, error) {
	resp, err := c.post(ctx, "verify", c.verifyURL, map[string]string{"phone": phone, "code": code})
	if err != nil {
		return resp, err
	}
	if !ok(resp.Status) {
		msg := resp.ErrorField()
		if msg == "" {
			msg = fmt.Sprintf("verification failed (%d)", resp.Status)
		}
		return resp, &ChannelError{
			Op:       "verify",
			Status:   resp.Status,
			Message:  msg,
			Response: resp,
		}
	}
	return resp, nil
}

func (c *Channel) post(ctx context.Context, op, endpoint string, payload any) (*Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if token == "" {
		return nil, ErrNoSession
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &ChannelError{Op: op, Message: fmt.Sprintf("%s request failed: %v", op, err), Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &ChannelError{Op: op, Status: res.StatusCode, Message: fmt.Sprintf("read %s response: %v", op, err), Err: err}
	}
	return decodeResponse(res.StatusCode, res.Header.Get("Content-Type"), raw), nil
}

func decodeResponse(status int, contentType string, raw []byte) *Response {
	resp := &Response{Status: status, ContentType: contentType}
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt == "application/json" {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil {
			resp.JSON = m
			return resp
		}
	}
	resp.Raw = string(raw)
	return resp
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

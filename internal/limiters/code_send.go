package limiters

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/rate"
	"github.com/redis/go-redis/v9"
)

var (
	ErrCodeSendRateLimited = errors.New("verification code send rate limited")
	ErrCodeSendUnavailable = errors.New("verification code limiter unavailable")
)

// CodeSendConfig bounds how often a code may be sent to one phone.
type CodeSendConfig struct {
	MaxSends int
	Window   time.Duration
	Prefix   string
}

// CodeSendLimiter throttles send-code requests per phone number.
type CodeSendLimiter struct {
	window *rate.Window
}

func NewCodeSendLimiter(rdb redis.UniversalClient, cfg CodeSendConfig) *CodeSendLimiter {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "authflow"
	}
	return &CodeSendLimiter{
		window: rate.NewWindow(rdb, prefix+":vcs", cfg.MaxSends, cfg.Window),
	}
}

// Check records one send attempt for phone.
func (l *CodeSendLimiter) Check(ctx context.Context, phone string) error {
	if l == nil {
		return nil
	}
	err := l.window.Hit(ctx, phone)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrCodeSendRateLimited
	default:
		return errors.Join(ErrCodeSendUnavailable, err)
	}
}

// Reset clears the budget for phone, used once the code was verified.
func (l *CodeSendLimiter) Reset(ctx context.Context, phone string) error {
	if l == nil {
		return nil
	}
	if err := l.window.Reset(ctx, phone); err != nil {
		return errors.Join(ErrCodeSendUnavailable, err)
	}
	return nil
}

// Package logging wraps a zap sugared logger with key/value redaction.
//
// Values under keys that look like credentials are replaced, user ids are
// hashed, phone numbers are masked to their last four digits, and any string
// shaped like a JWT is redacted regardless of its key.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	sugar  *zap.SugaredLogger
	redact bool
	salt   string
}

// Options tunes redaction.
type Options struct {
	Level string
	// DisableRedaction logs values as given. Meant for local debugging only.
	DisableRedaction bool
	HashSalt         string
}

// New builds a logger. mode is "prod"/"production" for JSON output, anything
// else for the development console encoder.
func New(mode string, opts Options) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return Wrap(zl, opts), nil
}

// Wrap adopts an existing zap logger.
func Wrap(zl *zap.Logger, opts Options) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Logger{
		sugar:  zl.Sugar(),
		redact: !opts.DisableRedaction,
		salt:   opts.HashSalt,
	}
}

func NewNop() *Logger {
	return Wrap(zap.NewNop(), Options{})
}

func (l *Logger) Sync() {
	if l == nil {
		return
	}
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) {
	if l == nil {
		return
	}
	l.sugar.Debugw(msg, l.sanitizeKVs(kv)...)
}

func (l *Logger) Info(msg string, kv ...any) {
	if l == nil {
		return
	}
	l.sugar.Infow(msg, l.sanitizeKVs(kv)...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	if l == nil {
		return
	}
	l.sugar.Warnw(msg, l.sanitizeKVs(kv)...)
}

func (l *Logger) Error(msg string, kv ...any) {
	if l == nil {
		return
	}
	l.sugar.Errorw(msg, l.sanitizeKVs(kv)...)
}

func (l *Logger) With(kv ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		sugar:  l.sugar.With(l.sanitizeKVs(kv)...),
		redact: l.redact,
		salt:   l.salt,
	}
}

func (l *Logger) sanitizeKVs(kv []any) []any {
	if len(kv) == 0 || !l.redact {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, l.sanitizeValue(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	return out
}

func (l *Logger) sanitizeValue(key string, val any) any {
	switch {
	case key == "":
	case isRedactKey(key):
		return "[REDACTED]"
	case isHashKey(key):
		return l.hashValue(val)
	case strings.Contains(key, "phone"):
		return maskPhone(toString(val))
	}
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = l.sanitizeValue(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return "[REDACTED]"
		}
	}
	return val
}

func isRedactKey(key string) bool {
	if key == "code" || key == "otp" {
		return true
	}
	for _, needle := range []string{"token", "authorization", "password", "secret", "apikey", "api_key", "anon_key", "refresh", "verification_code"} {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func isHashKey(key string) bool {
	return strings.Contains(key, "user_id") || key == "email"
}

func (l *Logger) hashValue(val any) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	if l.salt != "" {
		_, _ = h.Write([]byte(l.salt))
	}
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return strings.Repeat("*", len(p))
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

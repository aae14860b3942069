package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/limiters"
	"github.com/MrEthical07/goAuthClient/internal/logging"
	"github.com/MrEthical07/goAuthClient/internal/metrics"
	"github.com/MrEthical07/goAuthClient/profile"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/verification"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine].
//
// Every collaborator is optional. Missing ones are built from the Config:
// an identity client over the session store, a verification channel using
// that client's access token, and a profile store for Profile.Driver.
// A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	identity     IdentityProvider
	sessionStore SessionStore
	profileStore ProfileStore
	codeChannel  CodeChannel
	httpClient   *http.Client

	logger    *zap.Logger
	auditSink AuditSink
	navigator Navigator
	scheduler Scheduler

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the redis client used by the redis session backend and
// the code-send throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identity = p
	return b
}

// WithSessionStore sets the storage of the built-in identity client. It has
// no effect together with WithIdentityProvider.
func (b *Builder) WithSessionStore(s SessionStore) *Builder {
	b.sessionStore = s
	return b
}

func (b *Builder) WithProfileStore(s ProfileStore) *Builder {
	b.profileStore = s
	return b
}

func (b *Builder) WithCodeChannel(c CodeChannel) *Builder {
	b.codeChannel = c
	return b
}

// WithHTTPClient sets the client used by the built-in identity client and
// verification channel.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithLogger sets the zap logger. Without it a logger is built from
// Config.Log.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithNavigator sets where the engine sends the user after a confirmed
// callback.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithScheduler replaces the timer used for the delayed post-callback
// navigation.
func (b *Builder) WithScheduler(s Scheduler) *Builder {
	b.scheduler = s
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := b.buildLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		log:       log,
		navigator: b.navigator,
		scheduler: b.scheduler,
		metrics:   metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled, EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms}),
	}
	if engine.scheduler == nil {
		engine.scheduler = timerScheduler{}
	}

	rdb := b.redis
	if rdb == nil && (cfg.Session.Backend == "redis" || cfg.Verification.SendLimit.Enabled) {
		if cfg.Session.RedisAddr == "" {
			return nil, errors.New("redis client or Session RedisAddr required")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		rdb = client
		engine.closers = append(engine.closers, client.Close)
	}

	// -------- IDENTITY --------
	idp := b.identity
	if idp == nil {
		store := b.sessionStore
		if store == nil {
			if cfg.Session.Backend == "redis" {
				store = session.NewRedisStore(rdb, cfg.Session.RedisPrefix, cfg.Session.StorageKey, cfg.Session.MaxAge)
			} else {
				store = session.NewMemoryStore()
			}
		}
		client, err := identity.New(identity.Config{
			URL:          cfg.Provider.URL,
			AnonKey:      cfg.Provider.AnonKey,
			Timeout:      cfg.Provider.Timeout,
			AutoRefresh:  cfg.Provider.AutoRefresh,
			ExpiryMargin: cfg.Provider.ExpiryMargin,
			HTTPClient:   b.httpClient,
		}, store)
		if err != nil {
			engine.closeResources()
			return nil, err
		}
		idp = client
	}
	engine.identity = idp

	// -------- PROFILES --------
	profiles := b.profileStore
	if profiles == nil {
		profiles, err = openProfileStore(cfg.Profile, engine)
		if err != nil {
			engine.closeResources()
			return nil, err
		}
	}
	engine.profiles = profiles

	// -------- CODE CHANNEL --------
	channel := b.codeChannel
	if channel == nil {
		c, err := verification.New(verification.Config{
			BaseURL:    cfg.verificationBaseURL(),
			SendPath:   cfg.Verification.SendPath,
			VerifyPath: cfg.Verification.VerifyPath,
			Timeout:    cfg.Verification.Timeout,
			HTTPClient: b.httpClient,
		}, providerTokens(idp))
		if err != nil {
			engine.closeResources()
			return nil, err
		}
		channel = c
	}
	engine.channel = channel

	if cfg.Verification.SendLimit.Enabled {
		engine.sendLimiter = limiters.NewCodeSendLimiter(rdb, limiters.CodeSendConfig{
			MaxSends: cfg.Verification.SendLimit.MaxSends,
			Window:   cfg.Verification.SendLimit.Window,
			Prefix:   cfg.Session.RedisPrefix,
		})
	}

	// -------- AUDIT --------
	var sink audit.Sink = b.auditSink
	if cfg.Audit.LogEvents {
		sink = audit.MultiSink{sink, audit.NewLoggerSink(log)}
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true
	log.Debug("engine built",
		"session_backend", cfg.Session.Backend,
		"profile_driver", cfg.Profile.Driver,
		"send_limit", cfg.Verification.SendLimit.Enabled,
	)
	return engine, nil
}

func (b *Builder) buildLogger(cfg LogConfig) (*logging.Logger, error) {
	opts := logging.Options{
		Level:            cfg.Level,
		DisableRedaction: cfg.DisableRedaction,
		HashSalt:         cfg.HashSalt,
	}
	if b.logger != nil {
		return logging.Wrap(b.logger, opts), nil
	}
	return logging.New(cfg.Mode, opts)
}

func openProfileStore(cfg ProfileConfig, engine *Engine) (ProfileStore, error) {
	if cfg.Driver == "memory" {
		return profile.NewMemoryStore(), nil
	}
	db, err := profile.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		engine.closers = append(engine.closers, sqlDB.Close)
	}
	store := profile.NewGormStore(db, cfg.Table)
	if cfg.AutoMigrate {
		if err := store.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate profiles: %w", err)
		}
	}
	return store, nil
}

// providerTokens reads the bearer token for code service calls from the
// provider's current session.
func providerTokens(p IdentityProvider) verification.TokenSource {
	if ts, ok := p.(verification.TokenSource); ok {
		return ts
	}
	return verification.TokenSourceFunc(func(ctx context.Context) (string, error) {
		sess, err := p.GetSession(ctx)
		if err != nil || sess == nil {
			return "", err
		}
		return sess.AccessToken, nil
	})
}

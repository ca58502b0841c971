package connector

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog"

	"github.com/gorewood/patchbay/internal/config"
	"github.com/gorewood/patchbay/internal/credentials"
	"github.com/gorewood/patchbay/internal/output"
	"github.com/gorewood/patchbay/internal/rest"
)

// Runner executes operations: validate, load credentials, gate, call.
type Runner struct {
	Loader   *credentials.Loader
	Settings *config.Settings

	// HTTPClient is the base client; auth and caching wrap its transport.
	HTTPClient *http.Client

	Logger zerolog.Logger

	// Timer drives retry waits; nil uses a real timer.
	Timer backoff.Timer

	// Confirm approves destructive calls. Nil refuses them unless forced.
	Confirm Confirmer

	// Cache enables an in-memory HTTP cache per connector and account.
	Cache bool

	mu     sync.Mutex
	caches map[string]*httpcache.Transport
}

// Run executes one operation. No network call is made unless the
// invocation is valid, the credential set is complete, and any
// destructive call has been approved.
func (r *Runner) Run(ctx context.Context, target Target, inv Invocation) (*Result, error) {
	conn, op := target.Connector, target.Operation
	logger := r.Logger.With().
		Str("invocation", uuid.NewString()).
		Str("connector", conn.Name).
		Str("operation", target.Resource.Name+" "+op.Verb).
		Logger()

	req, err := prepare(op, inv)
	if err != nil {
		return nil, err
	}

	account := r.account(conn, inv.Account)
	if account != "" && !conn.MultiAccount {
		return nil, output.NewUserError(fmt.Sprintf("%s does not support multiple accounts", conn.Name))
	}

	set, err := r.Loader.Load(conn.Name, account, req.requiredKeys(conn.RequiredKeys()))
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("credentials", set.Path).Msg("loaded credentials")

	if err := req.fill(op, set); err != nil {
		return nil, err
	}

	if err := gate(ctx, r.Confirm, target, inv); err != nil {
		return nil, err
	}

	client, err := r.client(ctx, conn, set, logger)
	if err != nil {
		return nil, err
	}
	result, err := call(ctx, client, logger, target, req, inv.All)
	if op.Method != http.MethodGet {
		r.invalidate(conn.Name, set.Account)
	}
	return result, err
}

func (r *Runner) account(conn *Connector, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if r.Settings != nil {
		return r.Settings.Connector(conn.Name).Account
	}
	return ""
}

func (r *Runner) client(ctx context.Context, conn *Connector, set *credentials.Set, logger zerolog.Logger) (*rest.Client, error) {
	authorizer, err := conn.Authorize(set)
	if err != nil {
		return nil, err
	}

	baseURL := conn.ResolveBaseURL(set)
	cfg := rest.Config{
		HTTPClient:    authorizer.HTTPClient(ctx, r.baseClient(conn.Name, set.Account)),
		Timer:         r.Timer,
		Logger:        logger,
		NotFoundCodes: conn.NotFoundCodes,
	}
	if r.Settings != nil {
		if override := r.Settings.Connector(conn.Name).BaseURL; override != "" {
			baseURL = override
		}
		cfg.UserAgent = r.Settings.HTTP.UserAgent
		cfg.Retry = rest.RetryPolicy{
			MaxRetries:      r.Settings.Retry.MaxRetries,
			InitialInterval: r.Settings.Retry.InitialInterval,
			MaxInterval:     r.Settings.Retry.MaxInterval,
			Multiplier:      r.Settings.Retry.Multiplier,
		}
	} else {
		cfg.Retry = rest.DefaultRetryPolicy()
	}
	cfg.BaseURL = baseURL
	if conn.Headers != nil {
		cfg.Headers = conn.Headers(set)
	}
	return rest.NewClient(cfg)
}

// baseClient returns the client that auth wraps. With caching on, each
// connector and account gets its own cache so responses never cross
// accounts.
func (r *Runner) baseClient(connector, account string) *http.Client {
	base := r.HTTPClient
	if base == nil {
		timeout := 30 * time.Second
		if r.Settings != nil {
			timeout = r.Settings.HTTP.Timeout
		}
		base = &http.Client{Timeout: timeout}
	}
	if !r.Cache {
		return base
	}

	key := cacheKey(connector, account)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.caches == nil {
		r.caches = make(map[string]*httpcache.Transport)
	}
	cache, ok := r.caches[key]
	if !ok {
		cache = httpcache.NewMemoryCacheTransport()
		cache.Transport = base.Transport
		r.caches[key] = cache
	}
	return &http.Client{Transport: cache, Timeout: base.Timeout}
}

// invalidate drops the account's cache after a write, so later reads of
// any URL go back to the vendor.
func (r *Runner) invalidate(connector, account string) {
	if !r.Cache {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.caches, cacheKey(connector, account))
}

func cacheKey(connector, account string) string {
	return connector + "/" + account
}

package goGate

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MrEthical07/goGate/client"
	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/logging"
	"github.com/MrEthical07/goGate/kv"
	"github.com/MrEthical07/goGate/kv/boltstore"
	"github.com/MrEthical07/goGate/kv/memory"
	"github.com/MrEthical07/goGate/kv/redisstore"
	"github.com/MrEthical07/goGate/role"
	"github.com/MrEthical07/goGate/route"
	"github.com/MrEthical07/goGate/session"
	"github.com/MrEthical07/goGate/token"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config

	backend    kv.Store
	table      *route.Table
	resolver   IdentityResolver
	auditSink  AuditSink
	logger     *slog.Logger
	httpClient *http.Client
	clock      func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. It is copied; later changes to cfg
// do not affect the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage supplies the persisted key-value store. The engine does not
// close a store passed in here. Without it the store is opened from
// Config.Session.
func (b *Builder) WithStorage(store kv.Store) *Builder {
	b.backend = store
	return b
}

// WithRouteTable overrides both the built-in table and Routes.TableFile.
func (b *Builder) WithRouteTable(t route.Table) *Builder {
	b.table = &t
	return b
}

// WithIdentityResolver replaces the default resolver, which posts to
// Client.IdentityPath.
func (b *Builder) WithIdentityResolver(r IdentityResolver) *Builder {
	b.resolver = r
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger replaces the logger built from Config.Logging.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithHTTPClient sets the client used for backend calls. Its Timeout wins over
// Config.Client.Timeout.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithClock sets the time source for token expiry and cache TTL checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
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

// Build validates the configuration, opens storage if needed and returns the
// engine. It fails on a second call.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		l, err := logging.New(cfg.Logging.logging(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		logger = l
	}

	roles, err := role.NewRegistryFrom(cfg.Roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	classifier, err := b.buildRoutes(cfg, roles)
	if err != nil {
		return nil, err
	}

	inspector, err := token.NewInspector(cfg.Token.inspectorConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if b.clock != nil {
		inspector.SetClock(b.clock)
	}

	exitRedirect := cfg.Impersonation.ExitRedirect
	if exitRedirect == "" {
		exitRedirect, _ = roles.Home(cfg.Impersonation.RequiredRole)
	}
	requiredRole, _ := roles.Parse(cfg.Impersonation.RequiredRole)

	backend, owned, err := b.openBackend(cfg.Session)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:       cfg,
		roles:        roles,
		routes:       classifier,
		backend:      backend,
		ownsBackend:  owned,
		inspector:    inspector,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger,
		exitRedirect: exitRedirect,
		gate:         make(chan struct{}, 1),
	}
	e.store = session.NewStore(backend, cfg.Session.Prefix, e.onHeal)

	baseURL, _ := cfg.Client.ResolveBaseURL()
	opts := []client.Option{
		client.WithObserver(clientObserver{metrics: e.metrics}),
		client.WithUnauthorizedHook(e.onUnauthorized),
		client.WithLogger(logger),
	}
	if b.httpClient != nil {
		opts = append(opts, client.WithHTTPClient(b.httpClient))
	}
	if b.clock != nil {
		opts = append(opts, client.WithClock(b.clock))
	}
	e.client, err = client.New(client.Config{
		BaseURL:      baseURL,
		Timeout:      cfg.Client.Timeout,
		UserAgent:    cfg.Client.UserAgent,
		CacheTTL:     cfg.Cache.TTL,
		CacheSize:    cfg.Cache.Size,
		DisableCache: cfg.Cache.Disabled,
	}, e.store, opts...)
	if err != nil {
		if owned {
			_ = backend.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	e.resolver = b.resolver
	if e.resolver == nil {
		e.resolver = clientResolver{client: e.client, path: cfg.Client.IdentityPath}
	}

	e.audit = audit.NewDispatcher(audit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		BlockTimeout: cfg.Audit.BlockTimeout,
		OnDrop: func(ev audit.Event) {
			logger.Warn("audit event dropped", "event_type", ev.EventType)
		},
	}, b.auditSink)

	e.flows = flows.Deps{
		Gate: flows.GateDeps{
			Store:    e.store,
			Classify: classifier.Classify,
			Allows: func(req route.Requirement, r string) bool {
				return req.Allows(roles, r)
			},
			ParseRole:        roles.Parse,
			Home:             roles.Home,
			TokenExpired:     inspector.Expired,
			IsLanding:        landingSet(cfg.Routes.LandingPaths),
			LoginPath:        cfg.Routes.LoginPath,
			UnauthorizedPath: cfg.Routes.UnauthorizedPath,
			SuperAdminPrefix: route.Normalize(cfg.Impersonation.SuperAdminPrefix),
		},
		Enter: flows.EnterDeps{
			Store:        e.store,
			ParseRole:    roles.Parse,
			RequiredRole: requiredRole,
			Resolve:      e.resolver.ResolveIdentity,
		},
		Exit: flows.ExitDeps{
			Store: e.store,
		},
	}

	b.built = true
	logger.Debug("engine built",
		"backend", cfg.Session.Backend,
		"base_url", baseURL,
		"routes", classifier.Len(),
		"roles", roles.Count(),
	)
	return e, nil
}

func (b *Builder) buildRoutes(cfg Config, roles *role.Registry) (*route.Classifier, error) {
	var table route.Table
	switch {
	case b.table != nil:
		table = *b.table
	case cfg.Routes.TableFile != "":
		t, err := route.LoadTable(cfg.Routes.TableFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		table = t
	default:
		table = route.DefaultTable()
	}
	classifier, err := table.Build(roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return classifier, nil
}

func (b *Builder) openBackend(cfg SessionConfig) (kv.Store, bool, error) {
	if b.backend != nil {
		return b.backend, false, nil
	}
	switch cfg.Backend {
	case BackendRedis:
		return redisstore.Dial(cfg.RedisAddr, ""), true, nil
	case BackendBolt:
		s, err := boltstore.Open(cfg.BoltPath, "")
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return s, true, nil
	default:
		return memory.New(), true, nil
	}
}

func landingSet(paths []string) func(string) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[route.Normalize(p)] = struct{}{}
	}
	return func(p string) bool {
		_, ok := set[p]
		return ok
	}
}

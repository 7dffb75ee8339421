package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "admission-gateway",
		Level: hclog.LevelFromString(getenvDefault("LOG_LEVEL", "info")),
	})

	cfg, err := readConfig()
	if err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		logger.Error("invalid UPSTREAM_URL", "error", err)
		os.Exit(1)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", "path", r.URL.Path, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	// tabela de políticas: validada aqui, no startup (fail-fast)
	tiers := domain.DefaultTierPolicies()
	if cfg.anonymousLimit >= 0 {
		p := tiers[domain.TierAnonymous]
		p.Limit = cfg.anonymousLimit
		tiers[domain.TierAnonymous] = p
	}
	if cfg.authenticatedLimit >= 0 {
		p := tiers[domain.TierAuthenticated]
		p.Limit = cfg.authenticatedLimit
		tiers[domain.TierAuthenticated] = p
	}
	policies, err := domain.NewPolicyTable(tiers, domain.DefaultScopePolicies())
	if err != nil {
		logger.Error("policy table error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cache domain.HistoryCache
	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			logger.Error("redis ping error", "addr", cfg.redisAddr, "error", err)
			os.Exit(1)
		}

		cache = infra.NewRedisCache(rdb, infra.WithCachePrefix(cfg.cachePrefix))
	} else {
		mem := infra.NewMemoryCache()
		mem.StartJanitor(ctx)
		cache = mem
	}

	var fallback domain.LimiterStore
	if cfg.fallbackRPS > 0 {
		store := infra.NewLocalStore(cfg.fallbackRPS, cfg.fallbackBurst)
		store.StartJanitor(ctx)
		fallback = store
	}

	gate := admission.New(admission.Options{
		Cache:              cache,
		Policies:           policies,
		Identify:           identityFunc(cfg),
		Logger:             infra.NewHclogViolationLogger(logger),
		Fallback:           fallback,
		TrustXForwardedFor: cfg.trustXFF,
	})

	h := http.Handler(proxy)
	h = admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(h)
	if cfg.admissionEnabled {
		h = scopeRouter(gate, cfg.scopeRules, h)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening", "addr", cfg.listenAddr, "upstream", target.String())
	logger.Info("admission", "enabled", cfg.admissionEnabled, "redis", cfg.redisAddr != "", "trust_xff", cfg.trustXFF, "scope_rules", len(cfg.scopeRules))
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquire_timeout", cfg.concurrencyTimeout.String())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// identityFunc confia nos headers de identidade apenas quando habilitado
// (borda anterior precisa validar/limpar esses headers).
func identityFunc(cfg config) admission.IdentityFunc {
	if cfg.trustIdentityHeaders {
		return admission.HeaderIdentity()
	}
	return nil
}

type scopeRule struct {
	prefix string
	scope  domain.Scope
}

// scopeRouter escolhe o guard por prefixo de path (prefixo mais longo vence)
// e cai no guard genérico (escopo vazio = padrão do tier) quando nada casa.
func scopeRouter(gate *admission.Gate, rules []scopeRule, next http.Handler) http.Handler {
	defaultGuarded := gate.Guard("")(next)
	if len(rules) == 0 {
		return defaultGuarded
	}

	guarded := make([]http.Handler, len(rules))
	for i, rule := range rules {
		guarded[i] = gate.Guard(rule.scope)(next)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i, rule := range rules {
			if strings.HasPrefix(r.URL.Path, rule.prefix) {
				guarded[i].ServeHTTP(w, r)
				return
			}
		}
		defaultGuarded.ServeHTTP(w, r)
	})
}

type config struct {
	listenAddr  string
	upstreamURL string

	admissionEnabled     bool
	trustXFF             bool
	trustIdentityHeaders bool
	scopeRules           []scopeRule

	anonymousLimit     int
	authenticatedLimit int

	redisAddr     string
	redisPassword string
	redisDB       int
	cachePrefix   string

	fallbackRPS   float64
	fallbackBurst int

	concurrencyMax     int
	concurrencyTimeout time.Duration
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	cfg.admissionEnabled = getenvBoolDefault("ADMISSION_ENABLED", true)
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.trustIdentityHeaders = getenvBoolDefault("TRUST_IDENTITY_HEADERS", false)

	// -1 significa "sem override" (mantém o padrão da tabela)
	cfg.anonymousLimit = getenvIntDefault("ANONYMOUS_LIMIT", -1)
	cfg.authenticatedLimit = getenvIntDefault("AUTHENTICATED_LIMIT", -1)

	cfg.redisAddr = getenvDefault("REDIS_ADDR", "")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.cachePrefix = getenvDefault("CACHE_PREFIX", "admission:history")

	cfg.fallbackRPS = getenvFloatDefault("FALLBACK_RPS", 0)
	cfg.fallbackBurst = getenvIntDefault("FALLBACK_BURST", 10)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	rules, err := parseScopeRules(os.Getenv("SCOPE_RULES"))
	if err != nil {
		return config{}, err
	}
	cfg.scopeRules = rules

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.fallbackRPS > 0 && cfg.fallbackBurst <= 0 {
		return config{}, errors.New("FALLBACK_BURST must be > 0 when FALLBACK_RPS is set")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

// parseScopeRules interpreta SCOPE_RULES no formato
// "/login=login,/search=search" e ordena por prefixo mais longo primeiro.
func parseScopeRules(raw string) ([]scopeRule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var rules []scopeRule
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prefix, scope, ok := strings.Cut(part, "=")
		prefix = strings.TrimSpace(prefix)
		scope = strings.TrimSpace(scope)
		if !ok || prefix == "" || scope == "" || !strings.HasPrefix(prefix, "/") {
			return nil, errors.New("SCOPE_RULES entries must look like /path=scope")
		}
		rules = append(rules, scopeRule{prefix: prefix, scope: domain.Scope(scope)})
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].prefix) > len(rules[j].prefix)
	})
	return rules, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

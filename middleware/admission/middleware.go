package admission

import (
	"net/http"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
)

type Options struct {
	// Cache é o cache compartilhado de históricos. Nil opera em modo
	// degradado (fail-open/fail-closed por política + Fallback).
	Cache domain.HistoryCache
	// Policies é a tabela estática carregada no startup.
	// Nil usa domain.DefaultPolicyTable().
	Policies *domain.PolicyTable
	// Identify extrai a identidade do chamador. Nil = todo mundo anônimo.
	Identify IdentityFunc
	// Logger recebe uma chamada por negação (e falhas de cache). Opcional.
	Logger domain.ViolationLogger
	// Fallback é o limiter local consultado quando o cache está indisponível
	// e a política é fail-open. Opcional.
	Fallback domain.LimiterStore

	TrustXForwardedFor bool
	RejectStatus       int

	// Now permite injetar o relógio em testes. Nil usa time.Now.
	Now func() time.Time
}

// Gate compõe resolução de identidade, tabela de políticas e o contador de
// janela deslizante em volta de operações protegidas.
type Gate struct {
	opts Options
	svc  application.Service
}

func New(opts Options) *Gate {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.Policies == nil {
		opts.Policies = domain.DefaultPolicyTable()
	}
	if opts.Identify == nil {
		opts.Identify = func(*http.Request) Identity { return Identity{} }
	}

	return &Gate{
		opts: opts,
		svc: application.Service{
			Cache:    opts.Cache,
			Fallback: opts.Fallback,
			Logger:   opts.Logger,
			Now:      opts.Now,
		},
	}
}

// Guard envolve a operação protegida com a semântica de admissão do escopo.
// Scope vazio cai no padrão do tier do chamador.
//
// A máquina de estados por chamada é binária: allow encaminha com headers,
// deny curto-circuita com 429 + Retry-After e uma chamada ao logger.
func (g *Gate) Guard(scope domain.Scope) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := g.opts.Identify(r)
			if id.Privileged || id.Tier == domain.TierPrivileged {
				// operador não é limitado pelo próprio tooling:
				// sem contador e sem headers
				next.ServeHTTP(w, r)
				return
			}

			identifier := resolveIdentifier(r, id, g.opts.TrustXForwardedFor)
			pol := g.opts.Policies.Resolve(id.tier(), scope)
			key := domain.BuildKey(scope, identifier)

			dec := g.svc.Check(r.Context(), key, pol)
			writeRateHeaders(w, dec)

			if !dec.Allowed {
				if g.opts.Logger != nil {
					g.opts.Logger.Warn("rate limit exceeded",
						"scope", string(scope),
						"identifier", identifier,
						"limit", pol.Limit,
						"window", pol.Window.String(),
						"path", r.URL.Path,
					)
				}
				writeRejection(w, g.opts.RejectStatus, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package application

import (
	"context"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// Service concentra o algoritmo de janela deslizante sobre o cache compartilhado.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
//
// Os únicos pontos de bloqueio são uma leitura e (em allow) uma escrita no
// cache por checagem. Falha no cache nunca derruba a operação protegida:
// a decisão degrada conforme Policy.FailClosed e, opcionalmente, o Fallback.
type Service struct {
	Cache domain.HistoryCache

	// Fallback limita localmente quando o cache está indisponível e a
	// política é fail-open, para que uma queda do cache não deixe o escopo
	// totalmente sem teto. Opcional.
	Fallback domain.LimiterStore

	// Logger recebe falhas de cache (best-effort). Opcional.
	Logger domain.ViolationLogger

	// Now permite injetar o relógio em testes. Nil usa time.Now.
	Now func() time.Time
}

// Check avalia uma requisição para a chave segundo a política.
//
// Algoritmo: poda lazy dos timestamps fora de (now-window, now]; nega quando a
// lista podada já atingiu o limite, sem anexar o instante atual (tentativas
// rejeitadas nunca consomem capacidade); permite anexando now e regravando com
// TTL = janela.
func (s Service) Check(ctx context.Context, key domain.Key, pol domain.Policy) domain.Decision {
	now := s.now()

	// caso especial documentado: limite zero nega sempre, sem tocar o cache
	if pol.Limit == 0 {
		return domain.Decision{
			Allowed:    false,
			Limit:      0,
			Remaining:  0,
			ResetAt:    now.Add(pol.Window),
			RetryAfter: pol.Window,
		}
	}

	if s.Cache == nil {
		return s.degraded(key, pol, now)
	}

	history, _, err := s.Cache.Get(ctx, key)
	if err != nil {
		s.warnCache("admission cache read failed", key, pol, err)
		return s.degraded(key, pol, now)
	}

	cutoff := now.Add(-pol.Window)
	pruned := make([]time.Time, 0, len(history)+1)
	for _, t := range history {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= pol.Limit {
		resetAt := pruned[0].Add(pol.Window)
		return domain.Decision{
			Allowed:    false,
			Limit:      pol.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt.Sub(now)),
		}
	}

	pruned = append(pruned, now)
	if err := s.Cache.Set(ctx, key, pruned, pol.Window); err != nil {
		s.warnCache("admission cache write failed", key, pol, err)
		if pol.FailClosed {
			return domain.Decision{
				Allowed:    false,
				Limit:      pol.Limit,
				Remaining:  0,
				ResetAt:    now.Add(pol.Window),
				RetryAfter: pol.Window,
				Degraded:   true,
			}
		}
		// fail-open sem persistir: nada se acumula no histórico, então o
		// teto local precisa valer também numa pane só de escrita
		if s.fallbackDenies(key) {
			return domain.Decision{
				Allowed:    false,
				Limit:      pol.Limit,
				Remaining:  0,
				ResetAt:    now.Add(pol.Window),
				RetryAfter: time.Second,
				Degraded:   true,
			}
		}
		return domain.Decision{
			Allowed:   true,
			Limit:     pol.Limit,
			Remaining: pol.Limit - len(pruned),
			ResetAt:   pruned[0].Add(pol.Window),
			Degraded:  true,
		}
	}

	return domain.Decision{
		Allowed:   true,
		Limit:     pol.Limit,
		Remaining: pol.Limit - len(pruned),
		ResetAt:   pruned[0].Add(pol.Window),
	}
}

// degraded decide sem o cache compartilhado.
func (s Service) degraded(key domain.Key, pol domain.Policy, now time.Time) domain.Decision {
	if pol.FailClosed {
		return domain.Decision{
			Allowed:    false,
			Limit:      pol.Limit,
			Remaining:  0,
			ResetAt:    now.Add(pol.Window),
			RetryAfter: pol.Window,
			Degraded:   true,
		}
	}

	if s.fallbackDenies(key) {
		return domain.Decision{
			Allowed:    false,
			Limit:      pol.Limit,
			Remaining:  0,
			ResetAt:    now.Add(pol.Window),
			RetryAfter: time.Second,
			Degraded:   true,
		}
	}

	// sem histórico não há como saber o consumo real; reporta como se fosse
	// a primeira requisição da janela
	remaining := pol.Limit - 1
	if remaining < 0 {
		remaining = 0
	}
	return domain.Decision{
		Allowed:   true,
		Limit:     pol.Limit,
		Remaining: remaining,
		ResetAt:   now.Add(pol.Window),
		Degraded:  true,
	}
}

// fallbackDenies consulta o teto local quando configurado.
func (s Service) fallbackDenies(key domain.Key) bool {
	if s.Fallback == nil {
		return false
	}
	lim := s.Fallback.Get(key)
	return lim != nil && !lim.Allow()
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) warnCache(msg string, key domain.Key, pol domain.Policy, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg,
		"key", string(key),
		"limit", pol.Limit,
		"window", pol.Window.String(),
		"fail_closed", pol.FailClosed,
		"error", err.Error(),
	)
}

// retryAfter arredonda para cima em segundos inteiros, com piso de 1s
// (Retry-After em HTTP é expresso em segundos).
func retryAfter(d time.Duration) time.Duration {
	if d <= time.Second {
		return time.Second
	}
	secs := (d + time.Second - 1) / time.Second
	return secs * time.Second
}

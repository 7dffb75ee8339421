package domain

// Camada de domínio do controle de admissão.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

// Key identifica um bucket de contagem: {scope}:{identifier}.
type Key string

// BuildKey monta a chave composta de um bucket.
//
// Scopes nunca contêm ":" e identifiers carregam prefixo ("user_"/"ip_"),
// então pares (scope, identifier) distintos nunca colidem.
func BuildKey(scope Scope, identifier string) Key {
	return Key(string(scope) + ":" + identifier)
}

// HistoryCache é o cache compartilhado de históricos de requisições aceitas.
//
// O valor é a sequência ordenada de timestamps dentro da janela, gravada com
// TTL = janela (expiração automática; nunca há deleção explícita).
// Get retorna ok=false em cache miss (primeira requisição da chave).
//
// Nenhuma semântica transacional é assumida: a sequência ler-podar-anexar-gravar
// não é atômica e duas checagens concorrentes da mesma chave podem ambas
// enxergar a última vaga. O limite é "soft" por decisão de projeto.
type HistoryCache interface {
	Get(ctx context.Context, key Key) (history []time.Time, ok bool, err error)
	Set(ctx context.Context, key Key, history []time.Time, ttl time.Duration) error
}

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Usado no caminho degradado (cache indisponível): a implementação pode ser
// token-bucket local, por exemplo via golang.org/x/time/rate.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter local por chave.
type LimiterStore interface {
	Get(Key) Limiter
}

// ViolationLogger recebe o registro estruturado de cada negação.
//
// kv são pares chave/valor alternados (estilo hclog). Implementações devem
// tratar a chamada como fire-and-forget: nunca derrubar a request.
type ViolationLogger interface {
	Warn(msg string, kv ...any)
}

// Decision é o resultado de uma checagem de admissão.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt é o instante em que o bucket esvaziaria, reportado tanto em
	// allow quanto em deny.
	ResetAt time.Time
	// RetryAfter é o tempo de espera recomendado quando negado (>= 1s).
	// Zero quando permitido.
	RetryAfter time.Duration
	// Degraded indica decisão tomada sem o cache compartilhado.
	Degraded bool
}

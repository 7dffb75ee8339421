package domain

import (
	"fmt"
	"time"
)

// Tier classifica o chamador e seleciona a política padrão na ausência de um
// escopo mais específico.
type Tier string

const (
	TierAnonymous     Tier = "anonymous"
	TierAuthenticated Tier = "authenticated"
	TierPremium       Tier = "premium"
	TierPrivileged    Tier = "privileged"
)

// Scope é um bucket de política nomeado, atrelado a uma operação específica.
// Um escopo mais estrito vence o padrão genérico do tier.
type Scope string

const (
	ScopeLogin      Scope = "login"
	ScopeUpload     Scope = "upload"
	ScopeSearch     Scope = "search"
	ScopeReport     Scope = "report-generation"
	ScopeChatMsg    Scope = "chat-message"
	ScopeChatRoom   Scope = "chat-room-create"
	ScopeAssignment Scope = "assignment-submission"
)

// Policy é a regra imutável de um tier ou escopo.
type Policy struct {
	// Limit é o máximo de requisições aceitas dentro da janela.
	// Limit == 0 é um caso especial documentado: nega sempre, com
	// RetryAfter = janela (nunca existe entrada para envelhecer).
	Limit  int
	Window time.Duration

	// FailClosed nega quando o cache compartilhado está indisponível.
	// O padrão é fail-open: disponibilidade acima de precisão, exceto em
	// escopos sensíveis a segurança (ex: login).
	FailClosed bool
}

func (p Policy) validate() error {
	if p.Limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", p.Limit)
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be > 0, got %s", p.Window)
	}
	return nil
}

// PolicyTable é a tabela estática de políticas, carregada uma vez no startup
// e injetada por referência no gate. Imutável após construída.
type PolicyTable struct {
	tiers  map[Tier]Policy
	scopes map[Scope]Policy
}

// NewPolicyTable valida e congela a tabela. Erros de configuração
// (limite negativo, janela <= 0, falta do padrão anonymous) falham aqui,
// no startup, nunca em tempo de request.
func NewPolicyTable(tiers map[Tier]Policy, scopes map[Scope]Policy) (*PolicyTable, error) {
	if _, ok := tiers[TierAnonymous]; !ok {
		return nil, fmt.Errorf("policy table requires a %q tier default", TierAnonymous)
	}
	for tier, p := range tiers {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("invalid policy for tier %q: %w", tier, err)
		}
	}
	for scope, p := range scopes {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("invalid policy for scope %q: %w", scope, err)
		}
	}

	t := &PolicyTable{
		tiers:  make(map[Tier]Policy, len(tiers)),
		scopes: make(map[Scope]Policy, len(scopes)),
	}
	for tier, p := range tiers {
		t.tiers[tier] = p
	}
	for scope, p := range scopes {
		t.scopes[scope] = p
	}
	return t, nil
}

// DefaultTierPolicies retorna os padrões por tier. O mapa é uma cópia:
// chamadores podem ajustar antes de montar a tabela.
func DefaultTierPolicies() map[Tier]Policy {
	return map[Tier]Policy{
		TierAnonymous:     {Limit: 20, Window: time.Minute},
		TierAuthenticated: {Limit: 100, Window: time.Minute},
		TierPremium:       {Limit: 500, Window: time.Minute},
	}
}

// DefaultScopePolicies retorna as regras por escopo. Login é fail-closed:
// escopo sensível a segurança não pode abrir quando o cache cai.
func DefaultScopePolicies() map[Scope]Policy {
	return map[Scope]Policy{
		ScopeLogin:      {Limit: 5, Window: time.Minute, FailClosed: true},
		ScopeUpload:     {Limit: 10, Window: time.Hour},
		ScopeSearch:     {Limit: 30, Window: time.Minute},
		ScopeReport:     {Limit: 20, Window: time.Hour},
		ScopeChatMsg:    {Limit: 60, Window: time.Minute},
		ScopeChatRoom:   {Limit: 5, Window: time.Hour},
		ScopeAssignment: {Limit: 10, Window: time.Hour},
	}
}

// DefaultPolicyTable retorna a tabela padrão do gateway.
func DefaultPolicyTable() *PolicyTable {
	t, err := NewPolicyTable(DefaultTierPolicies(), DefaultScopePolicies())
	if err != nil {
		// os mapas acima são constantes; se falhar é bug de programação
		panic(err)
	}
	return t
}

// Resolve aplica a ordem de resolução: escopo explícito vence o padrão do
// tier; escopo desconhecido (ou vazio) cai no padrão do tier; tier
// desconhecido cai no padrão anonymous.
//
// O bypass de chamador privilegiado é tratado antes, no gate — a tabela
// nunca enxerga esse caso.
func (t *PolicyTable) Resolve(tier Tier, scope Scope) Policy {
	if p, ok := t.scopes[scope]; ok {
		return p
	}
	if p, ok := t.tiers[tier]; ok {
		return p
	}
	return t.tiers[TierAnonymous]
}

// TierPolicy expõe o padrão de um tier (útil para wiring/logs no startup).
func (t *PolicyTable) TierPolicy(tier Tier) (Policy, bool) {
	p, ok := t.tiers[tier]
	return p, ok
}

// ScopePolicy expõe a regra de um escopo, se existir.
func (t *PolicyTable) ScopePolicy(scope Scope) (Policy, bool) {
	p, ok := t.scopes[scope]
	return p, ok
}

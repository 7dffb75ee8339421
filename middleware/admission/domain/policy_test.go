package domain

import (
	"testing"
	"time"
)

func TestNewPolicyTable_RequiresAnonymousDefault(t *testing.T) {
	_, err := NewPolicyTable(map[Tier]Policy{
		TierAuthenticated: {Limit: 10, Window: time.Minute},
	}, nil)
	if err == nil {
		t.Fatalf("expected error when anonymous default is missing")
	}
}

func TestNewPolicyTable_RejectsInvalidPolicies(t *testing.T) {
	base := map[Tier]Policy{TierAnonymous: {Limit: 20, Window: time.Minute}}

	// janela <= 0 é erro de configuração
	_, err := NewPolicyTable(base, map[Scope]Policy{
		ScopeLogin: {Limit: 5, Window: 0},
	})
	if err == nil {
		t.Fatalf("expected error for zero window")
	}

	// limite negativo é erro de configuração
	_, err = NewPolicyTable(base, map[Scope]Policy{
		ScopeLogin: {Limit: -1, Window: time.Minute},
	})
	if err == nil {
		t.Fatalf("expected error for negative limit")
	}

	// limite zero é o caso especial documentado, não um erro
	_, err = NewPolicyTable(base, map[Scope]Policy{
		ScopeLogin: {Limit: 0, Window: time.Minute},
	})
	if err != nil {
		t.Fatalf("expected zero limit to be accepted, got %v", err)
	}
}

func TestPolicyTable_Resolve_ScopeOverridesTier(t *testing.T) {
	table := DefaultPolicyTable()

	// escopo explícito vence o padrão do tier, mesmo sendo mais estrito
	p := table.Resolve(TierPremium, ScopeLogin)
	if p.Limit != 5 || p.Window != time.Minute {
		t.Fatalf("expected login policy 5/1m, got %d/%s", p.Limit, p.Window)
	}
	if !p.FailClosed {
		t.Fatalf("expected login scope to be fail-closed")
	}
}

func TestPolicyTable_Resolve_UnknownScopeFallsBackToTier(t *testing.T) {
	table := DefaultPolicyTable()

	p := table.Resolve(TierAuthenticated, "does-not-exist")
	if p.Limit != 100 {
		t.Fatalf("expected authenticated default 100, got %d", p.Limit)
	}

	p = table.Resolve(TierAnonymous, "")
	if p.Limit != 20 {
		t.Fatalf("expected anonymous default 20, got %d", p.Limit)
	}
}

func TestPolicyTable_Resolve_UnknownTierFallsBackToAnonymous(t *testing.T) {
	table := DefaultPolicyTable()

	p := table.Resolve("alien", "")
	if p.Limit != 20 {
		t.Fatalf("expected anonymous fallback 20, got %d", p.Limit)
	}
}

func TestBuildKey_DistinctPairsNeverCollide(t *testing.T) {
	k1 := BuildKey(ScopeLogin, "user_42")
	k2 := BuildKey(ScopeLogin, "ip_5.6.7.8")
	k3 := BuildKey(ScopeSearch, "user_42")

	if k1 == k2 || k1 == k3 || k2 == k3 {
		t.Fatalf("expected distinct keys, got %q %q %q", k1, k2, k3)
	}
	if k1 != Key("login:user_42") {
		t.Fatalf("unexpected key format: %q", k1)
	}
}

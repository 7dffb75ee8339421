package admission

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"admission-gateway/middleware/admission/domain"
)

// Identity é o que o gate precisa saber sobre o chamador.
// O valor zero representa um chamador anônimo.
type Identity struct {
	// ID é o identificador da conta autenticada ("" quando anônimo).
	ID string
	// Tier classifica o chamador. Vazio infere authenticated quando há ID,
	// anonymous caso contrário.
	Tier domain.Tier
	// Privileged marca operadores: bypass total, sem contador e sem headers.
	Privileged bool
}

// IdentityFunc extrai a identidade do chamador a partir da request.
// Tipicamente lê o que um middleware de autenticação anterior deixou no
// contexto. Nil equivale a "todo mundo é anônimo".
type IdentityFunc func(r *http.Request) Identity

// HeaderIdentity extrai a identidade de headers confiáveis
// (X-User-Id, X-User-Tier, X-Admin), tipicamente gravados por um middleware
// de autenticação anterior. Só use atrás de uma borda que valide/limpe esses
// headers.
func HeaderIdentity() IdentityFunc {
	return func(r *http.Request) Identity {
		id := Identity{
			ID:   strings.TrimSpace(r.Header.Get("X-User-Id")),
			Tier: domain.Tier(strings.TrimSpace(r.Header.Get("X-User-Tier"))),
		}
		if v := strings.TrimSpace(r.Header.Get("X-Admin")); v != "" {
			b, err := strconv.ParseBool(v)
			id.Privileged = err == nil && b
		}
		return id
	}
}

func (id Identity) tier() domain.Tier {
	if id.Tier != "" {
		return id.Tier
	}
	if id.ID != "" {
		return domain.TierAuthenticated
	}
	return domain.TierAnonymous
}

// resolveIdentifier deriva a chave estável do chamador.
//
// Autenticado amarra o limite à conta ("user_<id>"), não à localização de rede.
// Anônimo usa o endereço ("ip_<addr>"): primeiro IP do X-Forwarded-For quando
// confiável, senão o host do RemoteAddr. Nunca falha.
func resolveIdentifier(r *http.Request, id Identity, trustXFF bool) string {
	if id.ID != "" {
		return "user_" + id.ID
	}
	if addr := clientAddr(r, trustXFF); addr != "" {
		return "ip_" + addr
	}
	return "unknown"
}

func clientAddr(r *http.Request, trustXFF bool) string {
	if trustXFF {
		// pega o primeiro IP do X-Forwarded-For (cliente original)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				ip := strings.TrimSpace(parts[0])
				if ip != "" {
					return ip
				}
			}
		}
	}

	// fallback: RemoteAddr
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return ""
}

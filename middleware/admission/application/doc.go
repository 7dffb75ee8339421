// Package application contém os casos de uso (regras de aplicação) do controle
// de admissão.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Check(ctx, key, policy) retorna uma Decision
// (allow/deny + remaining + reset + retry-after).
package application

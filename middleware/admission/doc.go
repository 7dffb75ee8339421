// Package admission fornece adapters HTTP (net/http) para controle de admissão:
// rate limit por janela deslizante e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (janela deslizante, acquire/timeout) sem net/http
//   - infra: implementações concretas (Redis, memória, token bucket, semáforo, logger)
//   - admission (este pacote): middlewares HTTP + resolução de identidade +
//     tradução da decisão para status/headers/corpo JSON
//
// Fluxo no gateway:
//
//  1. Resolve a identidade do chamador (usuário autenticado ou IP/XFF)
//  2. Resolve a política (bypass de privilegiado > escopo da operação > padrão do tier)
//  3. Chama a camada application para a decisão de janela deslizante
//  4. Se negado, responde 429 com Retry-After + corpo JSON e loga a violação
//  5. Se permitido, anexa os headers X-RateLimit-* e chama o próximo handler
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como REDIS_ADDR, SCOPE_RULES, FALLBACK_RPS e CONCURRENCY_MAX.
package admission

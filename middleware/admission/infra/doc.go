// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisCache: histórico de timestamps no Redis (github.com/redis/go-redis/v9)
//   - MemoryCache: histórico em memória com expiração, para testes/desenvolvimento
//   - LocalStore: token bucket por chave usando golang.org/x/time/rate (modo degradado)
//   - ChanPool: semáforo simples para limite de concorrência
//   - HclogViolationLogger: adapter de hashicorp/go-hclog para o ViolationLogger
package infra

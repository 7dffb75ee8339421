package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-hclog"
)

func main() {
	// Exemplo: aplicando o gate por rota no seu próprio webserver (sem proxy),
	// com um escopo específico por operação protegida.
	logger := hclog.New(&hclog.LoggerOptions{Name: "example-server"})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cache := infra.NewMemoryCache()
	cache.StartJanitor(ctx)

	gate := admission.New(admission.Options{
		Cache:              cache,
		Identify:           admission.HeaderIdentity(),
		Logger:             infra.NewHclogViolationLogger(logger),
		TrustXForwardedFor: true,
	})

	ok := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(body + "\n"))
		}
	}

	r := chi.NewRouter()
	r.With(gate.Guard(domain.ScopeLogin)).Post("/login", ok("logged in"))
	r.With(gate.Guard(domain.ScopeSearch)).Get("/search", ok("results"))
	r.With(gate.Guard(domain.ScopeUpload)).Post("/upload", ok("uploaded"))
	r.With(gate.Guard(domain.ScopeReport)).Get("/reports", ok("report queued"))
	r.With(gate.Guard(domain.ScopeChatMsg)).Post("/chat/messages", ok("sent"))
	r.With(gate.Guard(domain.ScopeChatRoom)).Post("/chat/rooms", ok("room created"))
	r.With(gate.Guard(domain.ScopeAssignment)).Post("/assignments", ok("submitted"))
	// sem escopo explícito: vale o padrão do tier do chamador
	r.With(gate.Guard("")).Get("/", ok("ok"))

	h := http.Handler(r)
	h = admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{Max: 50})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

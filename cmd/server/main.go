package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"purchase-request-expense/internal/adapters/web"
	"purchase-request-expense/internal/app"
	"purchase-request-expense/internal/core"
	"purchase-request-expense/internal/db"
	"purchase-request-expense/internal/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	seq := core.NewSequenceService()
	advanceCode := os.Getenv("ADVANCE_PRODUCT_CODE")

	svc := app.NewAppService(
		core.NewCompanyService(pool),
		core.NewRequestService(pool, seq),
		core.NewExpenseService(pool),
		core.NewExpenseConverter(pool, advanceCode),
		core.NewSheetConverter(pool, seq, advanceCode),
	)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           web.NewHandler(svc),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

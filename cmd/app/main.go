package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"purchase-request-expense/internal/adapters/cli"
	"purchase-request-expense/internal/app"
	"purchase-request-expense/internal/core"
	"purchase-request-expense/internal/db"
	"purchase-request-expense/internal/logger"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: app <command> [args]")
		fmt.Fprintln(os.Stderr, "Commands: requests [state], show <id>, submit <id>, approve <id>,")
		fmt.Fprintln(os.Stderr, "          stage <id>, convert <request-id> <employee-id>, expenses")
		os.Exit(1)
	}

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

	cli.Run(ctx, svc, os.Args[1:])
}

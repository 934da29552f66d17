// Command orderband turns an account's order history into Bollinger-band reorder
// recommendations.
//
// Usage:
//
//	orderband analyze --config orderband.yaml [--as-of 2025-07-19] [--output json]
//	orderband watch --config orderband.yaml
//	orderband import --config orderband.yaml orders.csv
//	orderband setup [file]
//
// ORDERBAND_DSN, ORDERBAND_DRIVER, ORDERBAND_REDIS_ADDR, ORDERBAND_REDIS_PASSWORD and
// ORDERBAND_ACCOUNT override the configuration.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/config"
	"github.com/vadiminshakov/orderband/internal/app"
	"github.com/vadiminshakov/orderband/internal/domain"
	"github.com/vadiminshakov/orderband/internal/report"
	"github.com/vadiminshakov/orderband/internal/setup"
)

const usage = `usage: orderband <command> [flags]

commands:
  analyze   analyze every configured account once and print the report
  watch     analyze on a cron schedule and serve metrics
  import    load order lines from a CSV file into the order database
  setup     run the configuration wizard`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "setup" {
		path := setup.DefaultFile
		if len(args) > 0 {
			path = args[0]
		}
		if err := setup.RunTUI(path); err != nil {
			log.Fatal(err)
		}
		return
	}

	var file string
	if cmd == "import" {
		if len(args) == 0 {
			log.Fatal("import requires a CSV file")
		}
		file, args = args[len(args)-1], args[:len(args)-1]
	}

	cfg, err := config.Get(args)
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	switch cmd {
	case "analyze":
		err = analyze(ctx, a, cfg.Output)
	case "watch":
		err = a.Watch(ctx, func(r *domain.AccountReport) {
			logger.Info("analysis finished",
				zap.String("account", r.AccountID),
				zap.String("run_id", r.RunID),
				zap.Int("products", len(r.Products)),
				zap.Int("opportunities", len(r.Opportunities)))
		})
	case "import":
		err = importFile(ctx, a, file, logger)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", cmd), zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func analyze(ctx context.Context, a *app.App, output string) error {
	reports, err := a.Analyze(ctx)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if output == config.OutputJSON {
			if err := report.JSON(os.Stdout, r); err != nil {
				return err
			}
			continue
		}
		fmt.Println(report.Render(r))
	}
	return nil
}

func importFile(ctx context.Context, a *app.App, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := a.ImportCSV(ctx, f)
	if err != nil {
		return err
	}
	logger.Info("orders imported", zap.String("file", path), zap.Int("lines", n))
	return nil
}

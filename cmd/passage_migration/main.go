package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/passage-migration/internal/app"
	repos "github.com/yungbote/passage-migration/internal/data/repos/content"
	"github.com/yungbote/passage-migration/internal/migration"
	"github.com/yungbote/passage-migration/internal/platform/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("passage_migration", flag.ContinueOnError)
	var (
		strategy     string
		verifyRun    bool
		exportRun    bool
		ensureTables bool
		dryRun       bool
	)
	fs.StringVar(&strategy, "strategy", string(repos.StrategyAggregated), "extraction strategy: aggregated|per_passage")
	fs.BoolVar(&verifyRun, "verify", false, "compare both strategies and report differences without writing")
	fs.BoolVar(&exportRun, "export", false, "upload a JSON copy of the run to object storage")
	fs.BoolVar(&ensureTables, "ensure-tables", false, "create missing destination tables before writing")
	fs.BoolVar(&dryRun, "dry-run", false, "extract and assemble without destination writes")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: passage_migration [flags] dev|prod\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return migration.ExitOK
		}
		return migration.ExitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return migration.ExitUsage
	}
	env, err := config.ParseEnvironment(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return migration.ExitUsage
	}
	strat, err := repos.ParseStrategy(strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return migration.ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		return migration.ExitCode(err)
	}
	defer application.Close()
	log := application.Log

	pipeline, err := application.Pipeline(ctx, migration.Options{
		Strategy:     strat,
		Verify:       verifyRun,
		Export:       exportRun,
		EnsureTables: ensureTables,
		DryRun:       dryRun,
	})
	if err != nil {
		log.Error("Pipeline setup failed", "error", err)
		return migration.ExitCode(err)
	}

	res, err := pipeline.Run(ctx)
	if err != nil {
		log.Error("Migration failed",
			"run_id", res.RunID,
			"kind", string(migration.KindOf(err)),
			"error", err,
			"passages_written", res.PassageStats.Items,
		)
		return migration.ExitCode(err)
	}
	if res.MetadataErr != nil {
		log.Warn("Migration finished without cache metadata", "run_id", res.RunID, "error", res.MetadataErr)
	}
	if res.Verification != nil && !res.Verification.Equal() {
		log.Warn("Strategies disagree", "run_id", res.RunID, "mismatches", len(res.Verification.Mismatches))
	}
	log.Info("Done",
		"run_id", res.RunID,
		"environment", env,
		"strategy", string(res.Strategy),
		"passages", res.Passages,
		"topics", res.Topics,
		"batches", res.PassageStats.Batches,
		"exports", res.ExportKeys,
		"duration", res.Duration.String(),
	)
	return migration.ExitOK
}

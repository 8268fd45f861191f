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
	"github.com/yungbote/passage-migration/internal/export"
	"github.com/yungbote/passage-migration/internal/migration"
	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("prompt_group_export", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: prompt_group_export dev|prod\n")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		return migration.ExitCode(err)
	}
	defer application.Close()
	log := application.Log

	exporter, err := application.Exporter(ctx)
	if err != nil {
		log.Error("Export backend unavailable", "error", err)
		return migration.ExitCode(err)
	}

	if err := exportPrompts(ctx, application, exporter, log); err != nil {
		log.Error("Prompt export failed", "kind", string(migration.KindOf(err)), "error", err)
		return migration.ExitCode(err)
	}
	return migration.ExitOK
}

func exportPrompts(ctx context.Context, application *app.App, exporter *export.Exporter, log *logger.Logger) error {
	sess, err := application.OpenSource(ctx)
	if err != nil {
		return migration.ClassifySource("open source", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("Closing source session failed", "error", cerr)
		}
	}()

	promptRepo, err := repos.NewPromptRepo(sess.DB(), application.Cfg.Postgres.Schema, log)
	if err != nil {
		return migration.Wrap(migration.KindConfig, "build prompt repo", err)
	}
	rows, err := promptRepo.ActivePrompts(ctx)
	if err != nil {
		return migration.ClassifySource("fetch prompts", err)
	}

	sum, err := exporter.ExportPrompts(ctx, rows)
	if err != nil {
		return migration.Wrap(migration.KindOther, "export prompts", err)
	}
	log.Info("Prompt export complete",
		"environment", application.Cfg.Environment,
		"key", sum.Key,
		"total_prompts", sum.TotalPrompts,
		"total_categories", sum.TotalCategories,
		"categories", sum.Categories,
	)
	return nil
}

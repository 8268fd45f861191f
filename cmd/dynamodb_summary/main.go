package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yungbote/passage-migration/internal/destination"
	"github.com/yungbote/passage-migration/internal/migration"
	"github.com/yungbote/passage-migration/internal/platform/awsx"
	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/envutil"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("dynamodb_summary", flag.ContinueOnError)
	var prefix string
	var asJSON bool
	fs.StringVar(&prefix, "prefix", "pni-", "only tables whose name starts with prefix")
	fs.BoolVar(&asJSON, "json", false, "print summaries as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: dynamodb_summary [flags] dev|prod\n")
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

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return migration.ExitOther
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	region := envutil.String("AWS_REGION", env.Region())
	clients, err := awsx.New(ctx, config.Config{
		Environment: env,
		Dynamo: config.DynamoConfig{
			Region:   region,
			Profile:  envutil.String("AWS_PROFILE", ""),
			Endpoint: envutil.String("DYNAMODB_ENDPOINT", ""),
		},
		ObjectStorage: config.ObjectStorageConfig{Region: region},
	}, log)
	if err != nil {
		log.Error("AWS client setup failed", "error", err)
		return migration.ExitConfig
	}

	summaries, err := destination.New(clients.DynamoDB, log).Summarize(ctx, prefix)
	if err != nil {
		log.Error("Summarize tables failed", "error", err)
		return migration.ExitConnectivity
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summaries); err != nil {
			log.Error("Encode summaries failed", "error", err)
			return migration.ExitOther
		}
		return migration.ExitOK
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tSTATUS\tITEMS\tBYTES\tCREATED\tKEYS\tINDEXES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			s.Name,
			s.Status,
			s.ItemCount,
			s.SizeBytes,
			s.CreatedAt.Format(time.RFC3339),
			strings.Join(s.KeySchema, ","),
			strings.Join(s.Indexes, ","),
		)
	}
	if err := tw.Flush(); err != nil {
		return migration.ExitOther
	}
	log.Info("Summary complete", "environment", env, "region", region, "tables", len(summaries))
	return migration.ExitOK
}

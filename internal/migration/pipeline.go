package migration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	repos "github.com/yungbote/passage-migration/internal/data/repos/content"
	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/config"
	"github.com/yungbote/passage-migration/internal/platform/logger"
	"github.com/yungbote/passage-migration/internal/verify"
)

// Session is one run's relational connection.
type Session interface {
	DB() *gorm.DB
	Close() error
}

// Opener opens the run's relational session.
type Opener func(ctx context.Context) (Session, error)

type TableEnsurer interface {
	EnsureTables(ctx context.Context, names config.TableNames) error
}

// Exporter publishes human-facing copies of a run. Keys are returned for logging.
type Exporter interface {
	ExportPassages(ctx context.Context, strategy string, docs []types.PassageDocument) (string, error)
	ExportVerification(ctx context.Context, report verify.Report) (string, error)
}

type Options struct {
	Strategy     repos.Strategy
	Verify       bool
	Export       bool
	EnsureTables bool
	DryRun       bool
}

type Deps struct {
	Open     Opener
	Source   repos.Options
	Loader   *BulkLoader
	Metadata *MetadataWriter
	Tables   config.TableNames
	Ensurer  TableEnsurer
	Exporter Exporter
	Log      *logger.Logger
}

type Result struct {
	RunID           string
	Strategy        repos.Strategy
	Rows            int
	Passages        int
	SkippedRows     int
	Topics          int
	RowCapReached   bool
	PassageStats    WriteStats
	TopicStats      WriteStats
	MetadataWritten bool
	MetadataErr     error
	Verification    *verify.Report
	ExportKeys      []string
	DryRun          bool
	Duration        time.Duration
}

type Pipeline struct {
	deps Deps
	opts Options
	log  *logger.Logger
}

func NewPipeline(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Open == nil {
		return nil, Wrap(KindOther, "new pipeline", errors.New("missing source opener"))
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if !opts.DryRun && !opts.Verify && (deps.Loader == nil || deps.Metadata == nil) {
		return nil, Wrap(KindOther, "new pipeline", errors.New("missing destination writers"))
	}
	if opts.Strategy == "" {
		opts.Strategy = repos.StrategyAggregated
	}
	return &Pipeline{deps: deps, opts: opts, log: deps.Log.With("component", "Pipeline")}, nil
}

type extracted struct {
	rows   []*types.PassageRow
	docs   []types.PassageDocument
	topics []string
	// reference holds the per-passage documents in verification runs.
	reference []types.PassageDocument
}

func (p *Pipeline) Run(ctx context.Context) (res Result, err error) {
	started := time.Now()
	res = Result{
		RunID:    uuid.NewString(),
		Strategy: p.opts.Strategy,
		DryRun:   p.opts.DryRun,
	}
	log := p.log.With("run_id", res.RunID, "strategy", string(p.opts.Strategy))
	defer func() { res.Duration = time.Since(started) }()

	writes := !p.opts.DryRun && !p.opts.Verify
	if writes && p.opts.EnsureTables && p.deps.Ensurer != nil {
		if err := p.deps.Ensurer.EnsureTables(ctx, p.deps.Tables); err != nil {
			return res, Wrap(KindConnectivity, "ensure destination tables", err)
		}
	}

	ex, err := p.extract(ctx, log)
	if err != nil {
		return res, err
	}
	res.Rows = len(ex.rows)
	res.Passages = len(ex.docs)
	res.SkippedRows = len(ex.rows) - len(ex.docs)
	res.Topics = len(ex.topics)
	res.RowCapReached = p.deps.Source.RowCap > 0 && len(ex.rows) >= p.deps.Source.RowCap

	if p.opts.Verify {
		rep := verify.Compare(
			string(repos.StrategyPerPassage), ex.reference,
			string(repos.StrategyAggregated), ex.docs,
		)
		res.Verification = &rep
		log.Info("Strategy verification complete",
			"matched", rep.Matched,
			"only_in_reference", len(rep.OnlyInReference),
			"only_in_candidate", len(rep.OnlyInCandidate),
			"mismatches", len(rep.Mismatches),
			"equal", rep.Equal(),
		)
		for _, m := range rep.Mismatches {
			log.Warn("Strategy mismatch", "key", m.Key, "field", m.Field, "reference", m.Reference, "candidate", m.Candidate)
		}
		if p.opts.Export && p.deps.Exporter != nil {
			if key, err := p.deps.Exporter.ExportVerification(ctx, rep); err != nil {
				log.Warn("Verification export failed", "error", err)
			} else {
				res.ExportKeys = append(res.ExportKeys, key)
			}
		}
		return res, nil
	}

	if p.opts.DryRun {
		log.Info("Dry run; skipping destination writes",
			"passages", res.Passages,
			"topics", res.Topics,
			"batches", batchCount(len(ex.docs), p.deps.Loader),
		)
	} else {
		if err := p.load(ctx, log, ex, &res); err != nil {
			return res, err
		}
	}

	if p.opts.Export && p.deps.Exporter != nil {
		if key, err := p.deps.Exporter.ExportPassages(ctx, string(p.opts.Strategy), ex.docs); err != nil {
			log.Warn("Passage export failed", "error", err)
		} else {
			res.ExportKeys = append(res.ExportKeys, key)
		}
	}

	log.Info("Migration finished",
		"passages", res.Passages,
		"skipped_rows", res.SkippedRows,
		"topics", res.Topics,
		"metadata_written", res.MetadataWritten,
		"row_cap_reached", res.RowCapReached,
	)
	return res, nil
}

// extract runs every relational read inside one session, closed on all paths.
func (p *Pipeline) extract(ctx context.Context, log *logger.Logger) (ex extracted, err error) {
	sess, err := p.deps.Open(ctx)
	if err != nil {
		return ex, ClassifySource("open source", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("Closing source session failed", "error", cerr)
		}
	}()

	db := sess.DB()
	asm := NewAssembler(log)

	strategy := p.opts.Strategy
	if p.opts.Verify {
		// Verification compares aggregated rows against per-passage rows.
		strategy = repos.StrategyAggregated
	}
	src, err := repos.NewPassageSource(strategy, db, p.deps.Source, log)
	if err != nil {
		return ex, Wrap(KindConfig, "build passage source", err)
	}

	ex.rows, err = src.FetchPassageRows(ctx)
	if err != nil {
		return ex, ClassifySource("fetch passages", err)
	}
	var skipped int
	ex.docs, skipped = asm.AssembleAll(ex.rows)
	if skipped > 0 {
		log.Warn("Malformed rows skipped", "skipped", skipped, "kind", string(KindRowAssembly))
	}

	if p.opts.Verify {
		ref, err := repos.NewPerPassageSource(db, p.deps.Source, log)
		if err != nil {
			return ex, Wrap(KindConfig, "build reference source", err)
		}
		refRows, err := ref.FetchPassageRows(ctx)
		if err != nil {
			return ex, ClassifySource("fetch reference passages", err)
		}
		ex.reference, _ = asm.AssembleAll(refRows)
		return ex, nil
	}

	topics, err := repos.NewTopicRepo(db, p.deps.Source.Schema, log)
	if err != nil {
		return ex, Wrap(KindConfig, "build topic repo", err)
	}
	ex.topics, err = topics.ApprovedTopics(ctx)
	if err != nil {
		return ex, ClassifySource("fetch topics", err)
	}
	return ex, nil
}

func (p *Pipeline) load(ctx context.Context, log *logger.Logger, ex extracted, res *Result) error {
	var err error
	res.PassageStats, err = p.deps.Loader.WritePassages(ctx, p.deps.Tables.Passages, ex.docs)
	if err != nil {
		return Wrap(KindBatchWrite, "write passages", err)
	}
	res.TopicStats, err = p.deps.Loader.WriteTopics(ctx, p.deps.Tables.Topics, ex.topics)
	if err != nil {
		return Wrap(KindBatchWrite, "write topics", err)
	}

	meta := p.deps.Metadata.Record(
		MetadataTables{Passages: p.deps.Tables.Passages, Topics: p.deps.Tables.Topics},
		res.RunID,
		res.PassageStats.Items,
		res.TopicStats.Items,
	)
	if err := p.deps.Metadata.Write(ctx, p.deps.Tables.CacheMetadata, meta); err != nil {
		res.MetadataErr = Wrap(KindMetadataWrite, "write cache metadata", err)
		log.Error("Cache metadata write failed; content writes are kept", "error", err)
		return nil
	}
	res.MetadataWritten = true
	return nil
}

func batchCount(n int, l *BulkLoader) int {
	if l == nil {
		return (n + MaxBatchSize - 1) / MaxBatchSize
	}
	return l.BatchCount(n)
}

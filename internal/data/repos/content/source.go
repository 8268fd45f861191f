package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

// Strategy selects how passage rows are extracted.
type Strategy string

const (
	// StrategyAggregated builds every row, questions included, in one query.
	StrategyAggregated Strategy = "aggregated"
	// StrategyPerPassage queries questions passage by passage. Verification only.
	StrategyPerPassage Strategy = "per_passage"
)

func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyAggregated:
		return StrategyAggregated, nil
	case StrategyPerPassage, "per-passage":
		return StrategyPerPassage, nil
	default:
		return "", fmt.Errorf("unknown extraction strategy %q (allowed: %q, %q)", raw, StrategyAggregated, StrategyPerPassage)
	}
}

// PassageSource returns one row per approved (lesson, passage) that has at least one
// approved question, in deterministic order.
type PassageSource interface {
	Strategy() Strategy
	FetchPassageRows(ctx context.Context) ([]*types.PassageRow, error)
}

type Options struct {
	// Schema qualifies every table name; empty means unqualified.
	Schema string
	// RowCap bounds the number of rows returned; 0 disables it.
	RowCap int
	// Concurrency bounds the per-passage question fetches.
	Concurrency int
}

func NewPassageSource(strategy Strategy, db *gorm.DB, opts Options, baseLog *logger.Logger) (PassageSource, error) {
	switch strategy {
	case StrategyAggregated, "":
		return NewAggregatedSource(db, opts, baseLog)
	case StrategyPerPassage:
		return NewPerPassageSource(db, opts, baseLog)
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", strategy)
	}
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type tables struct {
	lessons      string
	passages     string
	questions    string
	promptGroups string
	prompts      string
}

func resolveTables(schema string) (tables, error) {
	schema = strings.TrimSpace(schema)
	if schema != "" && !identRE.MatchString(schema) {
		return tables{}, fmt.Errorf("invalid schema name %q", schema)
	}
	q := func(name string) string {
		if schema == "" {
			return name
		}
		return schema + "." + name
	}
	return tables{
		lessons:      q(types.Lesson{}.TableName()),
		passages:     q(types.Passage{}.TableName()),
		questions:    q(types.Question{}.TableName()),
		promptGroups: q(types.PromptGroup{}.TableName()),
		prompts:      q(types.Prompt{}.TableName()),
	}, nil
}

// rowColumns are the lesson and passage columns shared by both strategies.
const rowColumns = `l.id AS lesson_id,
	l.title AS lesson_title,
	l.summary AS lesson_description,
	l.topic AS lesson_topic,
	l.proficiency_level AS lesson_proficiency,
	l.estimated_duration AS lesson_estimated_duration,
	l.approval_status AS lesson_approval_status,
	CAST(p.id AS TEXT) AS passage_id,
	p.title AS passage_title,
	p.content AS passage_content,
	p.sort_order AS passage_sort_order,
	p.approval_status AS passage_approval_status,
	p.word_count AS passage_word_count,
	p.reading_level AS passage_reading_level,
	p.source AS passage_source`

const rowOrder = `l.proficiency_level, l.topic, l.id, p.sort_order`

func logCap(log *logger.Logger, rowCap, n int) {
	if rowCap > 0 && n >= rowCap {
		log.Warn("Row cap reached; results may be truncated", "row_cap", rowCap, "rows", n)
	}
}

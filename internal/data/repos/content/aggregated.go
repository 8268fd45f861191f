package content

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

// AggregatedSource extracts passage rows with a single JSON_AGG query. Postgres only.
type AggregatedSource struct {
	db     *gorm.DB
	tables tables
	rowCap int
	log    *logger.Logger
}

func NewAggregatedSource(db *gorm.DB, opts Options, baseLog *logger.Logger) (*AggregatedSource, error) {
	t, err := resolveTables(opts.Schema)
	if err != nil {
		return nil, err
	}
	return &AggregatedSource{
		db:     db,
		tables: t,
		rowCap: opts.RowCap,
		log:    baseLog.With("repo", "AggregatedSource"),
	}, nil
}

func (s *AggregatedSource) Strategy() Strategy { return StrategyAggregated }

// Query returns the aggregation statement and its bind arguments.
func (s *AggregatedSource) Query() (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT\n\t")
	b.WriteString(rowColumns)
	b.WriteString(`,
	JSON_AGG(
		JSON_BUILD_OBJECT(
			'question_id', q.id,
			'question', q.question_text,
			'type', q.question_type,
			'options', q.options,
			'correct', q.correct_answer_index,
			'correctAnswer', q.correct_answer,
			'acceptableAnswers', q.acceptable_answers,
			'wordLimit', q.word_limit,
			'placeholder', q.placeholder,
			'sort_order', q.sort_order,
			'points', COALESCE(q.points, 0),
			'question_approval_status', q.approval_status
		) ORDER BY q.sort_order, q.id
	) AS questions
`)
	fmt.Fprintf(&b, "FROM %s l\n", s.tables.lessons)
	fmt.Fprintf(&b, "INNER JOIN %s p ON p.lesson_id = l.id\n", s.tables.passages)
	fmt.Fprintf(&b, "INNER JOIN %s q ON q.passage_id = CAST(p.id AS TEXT)\n", s.tables.questions)
	b.WriteString(`WHERE l.approval_status = ?
	AND p.approval_status = ?
	AND q.approval_status = ?
	AND p.title IS NOT NULL
	AND p.content IS NOT NULL
	AND SUBSTR(l.proficiency_level, 1, 1) IN ?
GROUP BY
	l.id, l.title, l.summary, l.topic, l.proficiency_level,
	l.estimated_duration, l.approval_status,
	p.id, p.title, p.content, p.sort_order, p.approval_status,
	p.word_count, p.reading_level, p.source
`)
	b.WriteString("ORDER BY " + rowOrder)

	args := []interface{}{
		types.ApprovalStatusApproved,
		types.ApprovalStatusApproved,
		types.ApprovalStatusApproved,
		types.TierPrefixes,
	}
	if s.rowCap > 0 {
		b.WriteString("\nLIMIT ?")
		args = append(args, s.rowCap)
	}
	return b.String(), args
}

func (s *AggregatedSource) FetchPassageRows(ctx context.Context) ([]*types.PassageRow, error) {
	query, args := s.Query()
	s.log.Info("Executing passage aggregation query", "row_cap", s.rowCap)

	var rows []*types.PassageRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate passages: %w", err)
	}
	logCap(s.log, s.rowCap, len(rows))
	s.log.Info("Passage aggregation complete", "rows", len(rows))
	return rows, nil
}

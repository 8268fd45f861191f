package content

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

const defaultConcurrency = 8

// PerPassageSource lists qualifying passages first, then fetches each passage's
// approved questions on a bounded worker pool. It runs on any gorm dialect.
type PerPassageSource struct {
	db          *gorm.DB
	tables      tables
	rowCap      int
	concurrency int
	log         *logger.Logger
}

func NewPerPassageSource(db *gorm.DB, opts Options, baseLog *logger.Logger) (*PerPassageSource, error) {
	t, err := resolveTables(opts.Schema)
	if err != nil {
		return nil, err
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = defaultConcurrency
	}
	return &PerPassageSource{
		db:          db,
		tables:      t,
		rowCap:      opts.RowCap,
		concurrency: workers,
		log:         baseLog.With("repo", "PerPassageSource"),
	}, nil
}

func (s *PerPassageSource) Strategy() Strategy { return StrategyPerPassage }

// questionJSON mirrors the object the aggregation query builds for each question.
type questionJSON struct {
	QuestionID             int64          `json:"question_id"`
	Question               string         `json:"question"`
	Type                   string         `json:"type"`
	Options                datatypes.JSON `json:"options"`
	Correct                *int           `json:"correct"`
	CorrectAnswer          *string        `json:"correctAnswer"`
	AcceptableAnswers      datatypes.JSON `json:"acceptableAnswers"`
	WordLimit              *int           `json:"wordLimit"`
	Placeholder            *string        `json:"placeholder"`
	SortOrder              int            `json:"sort_order"`
	Points                 *int           `json:"points"`
	QuestionApprovalStatus string         `json:"question_approval_status"`
}

func (s *PerPassageSource) passages(ctx context.Context) ([]*types.PassageRow, error) {
	hasApprovedQuestion := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s q WHERE q.passage_id = CAST(p.id AS TEXT) AND q.approval_status = ?)",
		s.tables.questions,
	)
	tx := s.db.WithContext(ctx).
		Table(s.tables.lessons+" AS l").
		Select(rowColumns).
		Joins("INNER JOIN "+s.tables.passages+" AS p ON p.lesson_id = l.id").
		Where("l.approval_status = ? AND p.approval_status = ?", types.ApprovalStatusApproved, types.ApprovalStatusApproved).
		Where("p.title IS NOT NULL AND p.content IS NOT NULL").
		Where("SUBSTR(l.proficiency_level, 1, 1) IN ?", types.TierPrefixes).
		Where(hasApprovedQuestion, types.ApprovalStatusApproved).
		Order(rowOrder)
	if s.rowCap > 0 {
		tx = tx.Limit(s.rowCap)
	}
	var rows []*types.PassageRow
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list passages: %w", err)
	}
	return rows, nil
}

func (s *PerPassageSource) questions(ctx context.Context, passageID string) (datatypes.JSON, int, error) {
	var qs []types.Question
	err := s.db.WithContext(ctx).
		Table(s.tables.questions).
		Where("passage_id = ? AND approval_status = ?", passageID, types.ApprovalStatusApproved).
		Order("sort_order ASC, id ASC").
		Find(&qs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("questions for passage %s: %w", passageID, err)
	}
	out := make([]questionJSON, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionJSON{
			QuestionID:             q.ID,
			Question:               q.QuestionText,
			Type:                   q.QuestionType,
			Options:                q.Options,
			Correct:                q.CorrectAnswerIndex,
			CorrectAnswer:          q.CorrectAnswer,
			AcceptableAnswers:      q.AcceptableAnswers,
			WordLimit:              q.WordLimit,
			Placeholder:            q.Placeholder,
			SortOrder:              q.SortOrder,
			Points:                 q.Points,
			QuestionApprovalStatus: q.ApprovalStatus,
		})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, 0, fmt.Errorf("encode questions for passage %s: %w", passageID, err)
	}
	return datatypes.JSON(raw), len(out), nil
}

func (s *PerPassageSource) FetchPassageRows(ctx context.Context) ([]*types.PassageRow, error) {
	rows, err := s.passages(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("Fetching questions per passage", "passages", len(rows), "concurrency", s.concurrency)

	counts := make([]int, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range rows {
		i := i
		g.Go(func() error {
			raw, n, err := s.questions(gctx, rows[i].PassageID)
			if err != nil {
				return err
			}
			rows[i].Questions = raw
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*types.PassageRow, 0, len(rows))
	for i, r := range rows {
		if counts[i] == 0 {
			continue
		}
		out = append(out, r)
	}
	logCap(s.log, s.rowCap, len(out))
	s.log.Info("Per-passage extraction complete", "rows", len(out))
	return out, nil
}

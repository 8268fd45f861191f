package content

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

type PromptRepo interface {
	// ActivePrompts returns (category, title, content) for every active prompt of an
	// active group, ordered by category then title.
	ActivePrompts(ctx context.Context) ([]types.PromptRow, error)
}

type promptRepo struct {
	db     *gorm.DB
	tables tables
	log    *logger.Logger
}

func NewPromptRepo(db *gorm.DB, schema string, baseLog *logger.Logger) (PromptRepo, error) {
	t, err := resolveTables(schema)
	if err != nil {
		return nil, err
	}
	return &promptRepo{db: db, tables: t, log: baseLog.With("repo", "PromptRepo")}, nil
}

func (r *promptRepo) ActivePrompts(ctx context.Context) ([]types.PromptRow, error) {
	var rows []types.PromptRow
	err := r.db.WithContext(ctx).
		Table(r.tables.promptGroups+" AS pg").
		Select("pg.category AS category, pg.title AS title, p.content AS content").
		Joins("INNER JOIN "+r.tables.prompts+" AS p ON p.group_id = pg.id").
		Where("pg.is_active = ? AND p.is_active = ?", true, true).
		Order("pg.category, pg.title, p.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("active prompts: %w", err)
	}
	r.log.Info("Fetched active prompts", "prompts", len(rows))
	return rows, nil
}

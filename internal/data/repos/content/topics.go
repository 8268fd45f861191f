package content

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

type TopicRepo interface {
	// ApprovedTopics returns the distinct non-empty topics of approved lessons,
	// trimmed and sorted.
	ApprovedTopics(ctx context.Context) ([]string, error)
}

type topicRepo struct {
	db     *gorm.DB
	tables tables
	log    *logger.Logger
}

func NewTopicRepo(db *gorm.DB, schema string, baseLog *logger.Logger) (TopicRepo, error) {
	t, err := resolveTables(schema)
	if err != nil {
		return nil, err
	}
	return &topicRepo{db: db, tables: t, log: baseLog.With("repo", "TopicRepo")}, nil
}

func (r *topicRepo) ApprovedTopics(ctx context.Context) ([]string, error) {
	var raw []string
	err := r.db.WithContext(ctx).
		Table(r.tables.lessons).
		Distinct("topic").
		Where("approval_status = ?", types.ApprovalStatusApproved).
		Where("topic IS NOT NULL AND topic <> ''").
		Order("topic").
		Pluck("topic", &raw).Error
	if err != nil {
		return nil, fmt.Errorf("distinct topics: %w", err)
	}
	out := normalizeTopics(raw)
	r.log.Info("Fetched approved topics", "topics", len(out))
	return out, nil
}

func normalizeTopics(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

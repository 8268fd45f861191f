package testutil

import (
	"context"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/passage-migration/internal/domain/content"
)

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, id int64, level, topic string) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:                id,
		Title:             "lesson",
		Summary:           PtrString("summary"),
		ProficiencyLevel:  level,
		EstimatedDuration: PtrInt(15),
		ApprovalStatus:    types.ApprovalStatusApproved,
	}
	if topic != "" {
		l.Topic = PtrString(topic)
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedPassage(tb testing.TB, ctx context.Context, tx *gorm.DB, id string, lessonID int64, sortOrder int) *types.Passage {
	tb.Helper()
	p := &types.Passage{
		ID:             id,
		LessonID:       lessonID,
		Title:          PtrString("passage " + id),
		Content:        PtrString("Once upon a time."),
		SortOrder:      sortOrder,
		WordCount:      PtrInt(4),
		ApprovalStatus: types.ApprovalStatusApproved,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed passage: %v", err)
	}
	return p
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, id int64, passageID string, sortOrder int, points *int) *types.Question {
	tb.Helper()
	q := &types.Question{
		ID:                 id,
		PassageID:          passageID,
		QuestionText:       "What happened?",
		QuestionType:       "multiple_choice",
		Options:            datatypes.JSON([]byte(`["a","b","c"]`)),
		CorrectAnswerIndex: PtrInt(1),
		SortOrder:          sortOrder,
		Points:             points,
		ApprovalStatus:     types.ApprovalStatusApproved,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func SeedPromptGroup(tb testing.TB, ctx context.Context, tx *gorm.DB, id int64, category, title string, active bool) *types.PromptGroup {
	tb.Helper()
	g := &types.PromptGroup{ID: id, Category: category, Title: title, IsActive: true}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed prompt group: %v", err)
	}
	if !active {
		// gorm skips zero-value bools with a column default on Create.
		if err := tx.WithContext(ctx).Model(g).Update("is_active", false).Error; err != nil {
			tb.Fatalf("deactivate prompt group: %v", err)
		}
	}
	return g
}

func SeedPrompt(tb testing.TB, ctx context.Context, tx *gorm.DB, id, groupID int64, body string, active bool) *types.Prompt {
	tb.Helper()
	p := &types.Prompt{ID: id, GroupID: groupID, Content: body, IsActive: true}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed prompt: %v", err)
	}
	if !active {
		if err := tx.WithContext(ctx).Model(p).Update("is_active", false).Error; err != nil {
			tb.Fatalf("deactivate prompt: %v", err)
		}
	}
	return p
}

// SetApproval overwrites approval_status on one row of the given model.
func SetApproval(tb testing.TB, ctx context.Context, tx *gorm.DB, model interface{}, status string) {
	tb.Helper()
	if err := tx.WithContext(ctx).Model(model).Update("approval_status", status).Error; err != nil {
		tb.Fatalf("set approval: %v", err)
	}
}

func PtrString(v string) *string { return &v }

func PtrInt(v int) *int { return &v }

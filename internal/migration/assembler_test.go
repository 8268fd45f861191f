package migration

import (
	"errors"
	"strings"
	"testing"

	"gorm.io/datatypes"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

func row(level, passageID, questions string) *types.PassageRow {
	topic := "Grammar"
	r := &types.PassageRow{
		LessonID:             1,
		LessonTitle:          "L1",
		LessonTopic:          &topic,
		LessonProficiency:    level,
		LessonApprovalStatus: types.ApprovalStatusApproved,
		PassageID:            passageID,
		PassageTitle:         "T",
		PassageContent:       "C",
		PassageSortOrder:     1,
	}
	if questions != "" {
		r.Questions = datatypes.JSON(questions)
	}
	return r
}

func TestAssembleEndToEndScenario(t *testing.T) {
	asm := NewAssembler(logger.Nop())
	doc, err := asm.Assemble(row("A1", "P1", `[
		{"question_id": 2, "question": "q2", "type": "short_answer", "sort_order": 2, "points": 7},
		{"question_id": 1, "question": "q1", "type": "multiple_choice", "options": ["x","y"], "correct": 0, "sort_order": 1, "points": 3}
	]`))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Proficiency != types.ProficiencyBeginner {
		t.Fatalf("proficiency: want=%q got=%q", types.ProficiencyBeginner, doc.Proficiency)
	}
	if doc.QuestionCount != 2 || len(doc.Questions) != 2 {
		t.Fatalf("question_count: want=2 got=%d (len %d)", doc.QuestionCount, len(doc.Questions))
	}
	if doc.TotalPoints != 10 {
		t.Fatalf("total_points: want=10 got=%d", doc.TotalPoints)
	}
	if doc.Questions[0].QuestionID != 1 || doc.Questions[1].QuestionID != 2 {
		t.Fatalf("questions not in ordinal order: %+v", doc.Questions)
	}
	if doc.Questions[0].Correct == nil || *doc.Questions[0].Correct != 0 {
		t.Fatalf("correct index lost: %+v", doc.Questions[0])
	}
}

func TestAssembleAcceptsAnyAnswerAndOptionShapes(t *testing.T) {
	doc, err := NewAssembler(logger.Nop()).Assemble(row("B1", "P1", `[
		{"question_id": 4, "type": "matching", "options": {"a": 1}, "acceptableAnswers": [1990, "1990"], "sort_order": 1, "points": 2}
	]`))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.QuestionCount != 1 || doc.TotalPoints != 2 {
		t.Fatalf("counts: want=1/2 got=%d/%d", doc.QuestionCount, doc.TotalPoints)
	}
	q := doc.Questions[0]
	if got := string(q.AcceptableAnswers); got != `[1990, "1990"]` {
		t.Fatalf("acceptableAnswers: want=%s got=%s", `[1990, "1990"]`, got)
	}
	if got := string(q.Options); got != `{"a": 1}` {
		t.Fatalf("options: want=%s got=%s", `{"a": 1}`, got)
	}
	item, err := PassageItem(&doc)
	if err != nil {
		t.Fatalf("PassageItem: %v", err)
	}
	if _, ok := item["questions"]; !ok {
		t.Fatalf("questions attribute missing")
	}
}

func TestAssembleUnknownTierPassesThrough(t *testing.T) {
	doc, err := NewAssembler(logger.Nop()).Assemble(row("X1", "P1", `[{"question_id":1,"sort_order":1}]`))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Proficiency != "X1" {
		t.Fatalf("proficiency: want=%q got=%q", "X1", doc.Proficiency)
	}
	if doc.TotalPoints != 0 {
		t.Fatalf("null points should count as 0, got %d", doc.TotalPoints)
	}
}

func TestAssembleNullQuestionsIsEmptyList(t *testing.T) {
	for _, raw := range []string{"", "null", "[]"} {
		doc, err := NewAssembler(logger.Nop()).Assemble(row("B2", "P1", raw))
		if err != nil {
			t.Fatalf("Assemble(%q): %v", raw, err)
		}
		if doc.Questions == nil || doc.QuestionCount != 0 || doc.TotalPoints != 0 {
			t.Fatalf("Assemble(%q): want empty non-nil questions, got %+v", raw, doc.Questions)
		}
	}
}

func TestAssembleKeepsStableOrderForEqualOrdinals(t *testing.T) {
	doc, err := NewAssembler(logger.Nop()).Assemble(row("C1", "P1", `[
		{"question_id": 5, "sort_order": 1},
		{"question_id": 3, "sort_order": 1},
		{"question_id": 9, "sort_order": 0}
	]`))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var got []int64
	for _, q := range doc.Questions {
		got = append(got, q.QuestionID)
	}
	if len(got) != 3 || got[0] != 9 || got[1] != 5 || got[2] != 3 {
		t.Fatalf("order: want=[9 5 3] got=%v", got)
	}
}

func TestAssembleAllSkipsMalformedRows(t *testing.T) {
	rows := []*types.PassageRow{
		row("A1", "P1", `[{"question_id":1,"sort_order":1,"points":1}]`),
		row("A1", "", `[{"question_id":2,"sort_order":1}]`),
		row("", "P3", `[{"question_id":3,"sort_order":1}]`),
		row("B1", "P4", `{not json`),
		nil,
		row("C1", "P6", `[{"question_id":6,"sort_order":1,"points":4}]`),
	}
	docs, skipped := NewAssembler(logger.Nop()).AssembleAll(rows)
	if skipped != 4 {
		t.Fatalf("skipped: want=4 got=%d", skipped)
	}
	if len(docs) != 2 || docs[0].PassageID != "P1" || docs[1].PassageID != "P6" {
		t.Fatalf("docs: want [P1 P6] got %d docs", len(docs))
	}
}

func TestAssembleErrorsWrapInvalidRow(t *testing.T) {
	_, err := NewAssembler(logger.Nop()).Assemble(row("A1", "P1", `[1,2`))
	if !errors.Is(err, ErrInvalidRow) {
		t.Fatalf("want ErrInvalidRow, got %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 30); got != "short" {
		t.Fatalf("truncateRunes: want=%q got=%q", "short", got)
	}
	long := strings.Repeat("é", 40)
	got := truncateRunes(long, 30)
	if got != strings.Repeat("é", 30)+"..." {
		t.Fatalf("truncateRunes: got %q", got)
	}
}

package migration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/logger"
)

const traceTitleRunes = 30

// Assembler turns extraction rows into passage documents.
type Assembler struct {
	log *logger.Logger
}

func NewAssembler(baseLog *logger.Logger) *Assembler {
	return &Assembler{log: baseLog.With("component", "Assembler")}
}

// Assemble builds one document. Errors wrap ErrInvalidRow.
func (a *Assembler) Assemble(row *types.PassageRow) (types.PassageDocument, error) {
	if row == nil {
		return types.PassageDocument{}, fmt.Errorf("%w: nil row", ErrInvalidRow)
	}
	if strings.TrimSpace(row.PassageID) == "" {
		return types.PassageDocument{}, fmt.Errorf("%w: lesson %d: empty passage id", ErrInvalidRow, row.LessonID)
	}
	if row.LessonProficiency == "" {
		return types.PassageDocument{}, fmt.Errorf("%w: passage %s: empty proficiency code", ErrInvalidRow, row.PassageID)
	}
	questions, err := decodeQuestions(row.Questions)
	if err != nil {
		return types.PassageDocument{}, fmt.Errorf("%w: passage %s: %v", ErrInvalidRow, row.PassageID, err)
	}

	return types.PassageDocument{
		LessonID:                row.LessonID,
		LessonTitle:             row.LessonTitle,
		LessonDescription:       row.LessonDescription,
		LessonTopic:             row.LessonTopic,
		LessonProficiency:       row.LessonProficiency,
		LessonEstimatedDuration: row.LessonEstimatedDuration,
		LessonApprovalStatus:    row.LessonApprovalStatus,
		PassageID:               row.PassageID,
		PassageTitle:            row.PassageTitle,
		PassageContent:          row.PassageContent,
		PassageSortOrder:        row.PassageSortOrder,
		PassageApprovalStatus:   row.PassageApprovalStatus,
		PassageWordCount:        row.PassageWordCount,
		PassageReadingLevel:     row.PassageReadingLevel,
		PassageSource:           row.PassageSource,
		Proficiency:             types.Classify(row.LessonProficiency),
		Questions:               questions,
		QuestionCount:           len(questions),
		TotalPoints:             types.TotalPoints(questions),
	}, nil
}

// AssembleAll assembles every row, logging and skipping malformed ones. It returns the
// documents in row order and the number of skipped rows.
func (a *Assembler) AssembleAll(rows []*types.PassageRow) ([]types.PassageDocument, int) {
	docs := make([]types.PassageDocument, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		doc, err := a.Assemble(row)
		if err != nil {
			skipped++
			a.log.Warn("Skipping malformed passage row", "row", i, "error", err)
			continue
		}
		a.log.Info("Passage assembled",
			"title", truncateRunes(doc.PassageTitle, traceTitleRunes),
			"proficiency", doc.Proficiency,
			"questions", doc.QuestionCount,
			"points", doc.TotalPoints,
		)
		docs = append(docs, doc)
	}
	return docs, skipped
}

func decodeQuestions(raw []byte) ([]types.QuestionDocument, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []types.QuestionDocument{}, nil
	}
	var qs []types.QuestionDocument
	if err := json.Unmarshal(trimmed, &qs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if qs == nil {
		qs = []types.QuestionDocument{}
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].SortOrder < qs[j].SortOrder })
	return qs, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

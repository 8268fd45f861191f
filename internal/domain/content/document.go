package content

import (
	"strconv"

	"gorm.io/datatypes"
)

// QuestionDocument is one question inside a passage document. Field names match the
// sub-object rendered by the aggregation query. Options and AcceptableAnswers hold the
// column JSON as stored; their shape varies by question type.
type QuestionDocument struct {
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

// PointValue is the question's points with null treated as 0.
func (q QuestionDocument) PointValue() int {
	if q.Points == nil {
		return 0
	}
	return *q.Points
}

// PassageDocument is the unit of migration: lesson context, passage body, ordered
// questions and derived totals.
type PassageDocument struct {
	LessonID                int64              `json:"lesson_id"`
	LessonTitle             string             `json:"lesson_title"`
	LessonDescription       *string            `json:"lesson_description"`
	LessonTopic             *string            `json:"lesson_topic"`
	LessonProficiency       string             `json:"lesson_proficiency"`
	LessonEstimatedDuration *int               `json:"lesson_estimated_duration"`
	LessonApprovalStatus    string             `json:"lesson_approval_status"`
	PassageID               string             `json:"passage_id"`
	PassageTitle            string             `json:"passage_title"`
	PassageContent          string             `json:"passage_content"`
	PassageSortOrder        int                `json:"passage_sort_order"`
	PassageApprovalStatus   string             `json:"passage_approval_status"`
	PassageWordCount        *int               `json:"passage_word_count"`
	PassageReadingLevel     *string            `json:"passage_reading_level"`
	PassageSource           *string            `json:"passage_source"`
	Proficiency             string             `json:"proficiency"`
	Questions               []QuestionDocument `json:"questions"`
	QuestionCount           int                `json:"question_count"`
	TotalPoints             int                `json:"total_points"`
}

// DocumentKey is the destination composite key of a passage document.
type DocumentKey struct {
	LessonID  int64
	PassageID string
}

func (k DocumentKey) String() string {
	return strconv.FormatInt(k.LessonID, 10) + "/" + k.PassageID
}

func (d PassageDocument) Key() DocumentKey {
	return DocumentKey{LessonID: d.LessonID, PassageID: d.PassageID}
}

// TotalPoints sums question points, treating null as 0.
func TotalPoints(questions []QuestionDocument) int {
	total := 0
	for _, q := range questions {
		total += q.PointValue()
	}
	return total
}

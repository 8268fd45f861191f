package content

import (
	"gorm.io/datatypes"
)

// ApprovalStatusApproved gates inclusion in every migration output.
const ApprovalStatusApproved = "approved"

// Lesson is a read-only row of the lessons table.
type Lesson struct {
	ID                int64   `gorm:"column:id;primaryKey" json:"id"`
	Title             string  `gorm:"column:title;not null" json:"title"`
	Summary           *string `gorm:"column:summary" json:"summary,omitempty"`
	Topic             *string `gorm:"column:topic" json:"topic,omitempty"`
	ProficiencyLevel  string  `gorm:"column:proficiency_level;not null" json:"proficiency_level"`
	EstimatedDuration *int    `gorm:"column:estimated_duration" json:"estimated_duration,omitempty"`
	ApprovalStatus    string  `gorm:"column:approval_status;not null;index" json:"approval_status"`
}

func (Lesson) TableName() string { return "lessons" }

type Passage struct {
	ID             string  `gorm:"column:id;primaryKey" json:"id"`
	LessonID       int64   `gorm:"column:lesson_id;not null;index" json:"lesson_id"`
	Title          *string `gorm:"column:title" json:"title,omitempty"`
	Content        *string `gorm:"column:content" json:"content,omitempty"`
	SortOrder      int     `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	WordCount      *int    `gorm:"column:word_count" json:"word_count,omitempty"`
	ReadingLevel   *string `gorm:"column:reading_level" json:"reading_level,omitempty"`
	Source         *string `gorm:"column:source" json:"source,omitempty"`
	ApprovalStatus string  `gorm:"column:approval_status;not null;index" json:"approval_status"`
}

func (Passage) TableName() string { return "passages" }

// Question.PassageID is text in the source schema, compared against the passage id
// rendered as text.
type Question struct {
	ID                 int64          `gorm:"column:id;primaryKey" json:"id"`
	PassageID          string         `gorm:"column:passage_id;not null;index" json:"passage_id"`
	QuestionText       string         `gorm:"column:question_text;not null" json:"question_text"`
	QuestionType       string         `gorm:"column:question_type;not null" json:"question_type"`
	Options            datatypes.JSON `gorm:"column:options" json:"options,omitempty"`
	CorrectAnswerIndex *int           `gorm:"column:correct_answer_index" json:"correct_answer_index,omitempty"`
	CorrectAnswer      *string        `gorm:"column:correct_answer" json:"correct_answer,omitempty"`
	AcceptableAnswers  datatypes.JSON `gorm:"column:acceptable_answers" json:"acceptable_answers,omitempty"`
	WordLimit          *int           `gorm:"column:word_limit" json:"word_limit,omitempty"`
	Placeholder        *string        `gorm:"column:placeholder" json:"placeholder,omitempty"`
	SortOrder          int            `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	Points             *int           `gorm:"column:points" json:"points,omitempty"`
	ApprovalStatus     string         `gorm:"column:approval_status;not null;index" json:"approval_status"`
}

func (Question) TableName() string { return "questions" }

type PromptGroup struct {
	ID       int64  `gorm:"column:id;primaryKey" json:"id"`
	Category string `gorm:"column:category;not null" json:"category"`
	Title    string `gorm:"column:title;not null" json:"title"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

func (PromptGroup) TableName() string { return "prompt_groups" }

type Prompt struct {
	ID       int64  `gorm:"column:id;primaryKey" json:"id"`
	GroupID  int64  `gorm:"column:group_id;not null;index" json:"group_id"`
	Content  string `gorm:"column:content;not null" json:"content"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

func (Prompt) TableName() string { return "prompts" }

// PromptRow is one (category, title, content) triple of the prompt-group export.
type PromptRow struct {
	Category string `gorm:"column:category"`
	Title    string `gorm:"column:title"`
	Content  string `gorm:"column:content"`
}

// PassageRow is one result row of the passage extraction: lesson and passage columns
// plus the raw question array rendered by the aggregation.
type PassageRow struct {
	LessonID                int64          `gorm:"column:lesson_id"`
	LessonTitle             string         `gorm:"column:lesson_title"`
	LessonDescription       *string        `gorm:"column:lesson_description"`
	LessonTopic             *string        `gorm:"column:lesson_topic"`
	LessonProficiency       string         `gorm:"column:lesson_proficiency"`
	LessonEstimatedDuration *int           `gorm:"column:lesson_estimated_duration"`
	LessonApprovalStatus    string         `gorm:"column:lesson_approval_status"`
	PassageID               string         `gorm:"column:passage_id"`
	PassageTitle            string         `gorm:"column:passage_title"`
	PassageContent          string         `gorm:"column:passage_content"`
	PassageSortOrder        int            `gorm:"column:passage_sort_order"`
	PassageApprovalStatus   string         `gorm:"column:passage_approval_status"`
	PassageWordCount        *int           `gorm:"column:passage_word_count"`
	PassageReadingLevel     *string        `gorm:"column:passage_reading_level"`
	PassageSource           *string        `gorm:"column:passage_source"`
	Questions               datatypes.JSON `gorm:"column:questions"`
}

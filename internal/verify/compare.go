// Package verify compares passage documents produced by two extraction strategies.
package verify

import (
	"sort"

	types "github.com/yungbote/passage-migration/internal/domain/content"
)

const (
	FieldProficiency   = "proficiency"
	FieldPassageTitle  = "passage_title"
	FieldQuestionCount = "question_count"
	FieldTotalPoints   = "total_points"
	FieldQuestionOrder = "question_order"
)

type Mismatch struct {
	Key       string `json:"key"`
	Field     string `json:"field"`
	Reference any    `json:"reference"`
	Candidate any    `json:"candidate"`
}

type Report struct {
	ReferenceStrategy string     `json:"reference_strategy"`
	CandidateStrategy string     `json:"candidate_strategy"`
	ReferenceCount    int        `json:"reference_count"`
	CandidateCount    int        `json:"candidate_count"`
	Matched           int        `json:"matched"`
	OnlyInReference   []string   `json:"only_in_reference"`
	OnlyInCandidate   []string   `json:"only_in_candidate"`
	Mismatches        []Mismatch `json:"mismatches"`
}

// Equal reports whether both sides hold the same documents with no field differences.
func (r Report) Equal() bool {
	return len(r.OnlyInReference) == 0 && len(r.OnlyInCandidate) == 0 && len(r.Mismatches) == 0
}

// Compare diffs candidate against reference keyed by (lesson_id, passage_id).
// Keys and mismatches are reported in ascending key order.
func Compare(refStrategy string, reference []types.PassageDocument, candStrategy string, candidate []types.PassageDocument) Report {
	ref := index(reference)
	cand := index(candidate)

	rep := Report{
		ReferenceStrategy: refStrategy,
		CandidateStrategy: candStrategy,
		ReferenceCount:    len(reference),
		CandidateCount:    len(candidate),
		OnlyInReference:   []string{},
		OnlyInCandidate:   []string{},
		Mismatches:        []Mismatch{},
	}

	for _, k := range sortedKeys(ref) {
		r := ref[k]
		c, ok := cand[k]
		if !ok {
			rep.OnlyInReference = append(rep.OnlyInReference, k)
			continue
		}
		rep.Matched++
		rep.Mismatches = append(rep.Mismatches, diff(k, r, c)...)
	}
	for _, k := range sortedKeys(cand) {
		if _, ok := ref[k]; !ok {
			rep.OnlyInCandidate = append(rep.OnlyInCandidate, k)
		}
	}
	return rep
}

func diff(key string, r, c types.PassageDocument) []Mismatch {
	var out []Mismatch
	add := func(field string, rv, cv any) {
		out = append(out, Mismatch{Key: key, Field: field, Reference: rv, Candidate: cv})
	}
	if r.Proficiency != c.Proficiency {
		add(FieldProficiency, r.Proficiency, c.Proficiency)
	}
	if r.PassageTitle != c.PassageTitle {
		add(FieldPassageTitle, r.PassageTitle, c.PassageTitle)
	}
	if r.QuestionCount != c.QuestionCount {
		add(FieldQuestionCount, r.QuestionCount, c.QuestionCount)
	}
	if r.TotalPoints != c.TotalPoints {
		add(FieldTotalPoints, r.TotalPoints, c.TotalPoints)
	}
	ro, co := questionOrder(r), questionOrder(c)
	if !equalIDs(ro, co) {
		add(FieldQuestionOrder, ro, co)
	}
	return out
}

func index(docs []types.PassageDocument) map[string]types.PassageDocument {
	m := make(map[string]types.PassageDocument, len(docs))
	for _, d := range docs {
		k := d.Key().String()
		if _, dup := m[k]; dup {
			continue
		}
		m[k] = d
	}
	return m
}

func sortedKeys(m map[string]types.PassageDocument) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func questionOrder(d types.PassageDocument) []int64 {
	ids := make([]int64, 0, len(d.Questions))
	for _, q := range d.Questions {
		ids = append(ids, q.QuestionID)
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package bank

import (
	"errors"
	"fmt"

	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/repository"
)

// ErrQuestionNotFound is returned when an identifier is not in the index.
var ErrQuestionNotFound = errors.New("question not found in bank")

// Index is the read-only question lookup for one interface snapshot. It is
// built once per snapshot from the content store and never written to; since
// published questions are immutable, the index stays consistent with the
// snapshot for the attempt's whole lifetime.
type Index struct {
	byID     map[string]model.Question
	sections [][]string
}

// Load bulk-fetches every question the snapshot references and indexes them.
// A snapshot referencing an unpublished question is a content error and
// fails loudly here rather than at scoring time.
func Load(def model.SnapshotDefinition, questions repository.QuestionRepository) (*Index, error) {
	var ids []string
	sections := make([][]string, len(def.Sections))
	for i, s := range def.Sections {
		sections[i] = append([]string(nil), s.QuestionIDs...)
		ids = append(ids, s.QuestionIDs...)
	}

	fetched, err := questions.FindByQuestionIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("loading questions for snapshot: %w", err)
	}

	byID := make(map[string]model.Question, len(fetched))
	for _, q := range fetched {
		byID[q.QuestionID] = q
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("snapshot references question %s: %w", id, ErrQuestionNotFound)
		}
	}

	return &Index{byID: byID, sections: sections}, nil
}

// NewIndex builds an index directly from questions already in hand. Used by
// tests and by callers that assemble snapshots in memory.
func NewIndex(def model.SnapshotDefinition, questions []model.Question) (*Index, error) {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.QuestionID] = q
	}
	sections := make([][]string, len(def.Sections))
	for i, s := range def.Sections {
		sections[i] = append([]string(nil), s.QuestionIDs...)
		for _, id := range s.QuestionIDs {
			if _, ok := byID[id]; !ok {
				return nil, fmt.Errorf("section %d references question %s: %w", i, id, ErrQuestionNotFound)
			}
		}
	}
	return &Index{byID: byID, sections: sections}, nil
}

func (ix *Index) Get(questionID string) (*model.Question, error) {
	q, ok := ix.byID[questionID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", questionID, ErrQuestionNotFound)
	}
	return &q, nil
}

// Has reports whether the question belongs to the snapshot.
func (ix *Index) Has(questionID string) bool {
	_, ok := ix.byID[questionID]
	return ok
}

// Section returns the section's questions in snapshot order.
func (ix *Index) Section(i int) []model.Question {
	if i < 0 || i >= len(ix.sections) {
		return nil
	}
	out := make([]model.Question, 0, len(ix.sections[i]))
	for _, id := range ix.sections[i] {
		out = append(out, ix.byID[id])
	}
	return out
}

func (ix *Index) SectionCount() int { return len(ix.sections) }

func (ix *Index) Len() int { return len(ix.byID) }

package models

import (
	"errors"
	"fmt"
	"strings"
)

// MaxBatchQuestions caps the number of questions accepted in one batch request.
const MaxBatchQuestions = 50

// ErrEmptyQuestion is returned when a question is blank.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// QueryRequest is the body of a single question request.
type QueryRequest struct {
	Question string `json:"question"`
}

// Validate trims the question and rejects blank input.
func (q *QueryRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// BatchQueryRequest is the body of a batch request.
type BatchQueryRequest struct {
	Questions []string `json:"questions"`
}

// Validate trims every question and rejects empty batches, blank questions and
// batches larger than MaxBatchQuestions.
func (b *BatchQueryRequest) Validate() error {
	if len(b.Questions) == 0 {
		return fmt.Errorf("questions cannot be empty")
	}
	if len(b.Questions) > MaxBatchQuestions {
		return fmt.Errorf("too many questions: %d (max %d)", len(b.Questions), MaxBatchQuestions)
	}
	for i, q := range b.Questions {
		b.Questions[i] = strings.TrimSpace(q)
		if b.Questions[i] == "" {
			return fmt.Errorf("question %d: %w", i, ErrEmptyQuestion)
		}
	}
	return nil
}

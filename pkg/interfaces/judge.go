package interfaces

import "context"

// JudgeScores contains quality metric scores for a generated response.
// Scores range from 0 to 1.
type JudgeScores struct {
	Faithfulness    float64 `json:"faithfulness"`
	AnswerRelevancy float64 `json:"answer_relevancy"`
}

// Judge represents an external quality evaluator for generated responses
type Judge interface {
	// Evaluate scores a response for faithfulness and relevancy against the
	// originating query and any retrieved contexts. Contexts may be empty.
	Evaluate(ctx context.Context, query, response string, contexts []string) (*JudgeScores, error)
}

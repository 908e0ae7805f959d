package evaluation

import (
	"fmt"

	"github.com/guardedai/mediator/pkg/interfaces"
)

// Thresholds holds the minimum acceptable scores for a response
type Thresholds struct {
	Faithfulness    float64
	AnswerRelevancy float64
}

// Passes reports whether both scores meet their thresholds
func (t Thresholds) Passes(scores *interfaces.JudgeScores) bool {
	return scores.Faithfulness >= t.Faithfulness && scores.AnswerRelevancy >= t.AnswerRelevancy
}

// Critique renders the scores as a short critique for a retry prompt
func Critique(scores *interfaces.JudgeScores) string {
	return fmt.Sprintf("Faithfulness: %.2f, Relevancy: %.2f.", scores.Faithfulness, scores.AnswerRelevancy)
}

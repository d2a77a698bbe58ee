package story

import "strings"

// ValidateAnswers returns one "<prompt> is required" message per question
// whose answer is absent or blank after trimming, in question order. Every
// question is required. The result is empty, never nil, when all answers are
// present.
func ValidateAnswers(answers Answers, questions []Question) []string {
	errs := make([]string, 0)
	for _, q := range questions {
		if strings.TrimSpace(answers[q.ID]) == "" {
			errs = append(errs, q.Prompt+" is required")
		}
	}
	return errs
}

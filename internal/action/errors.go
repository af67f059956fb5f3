// File: internal/action/errors.go
package action

import "fmt"

// MaxPromptLength is the largest continuation prompt, in characters, that will
// be bound and typed.
const MaxPromptLength = 200

// ValidationError reports input the action refused to act on: unknown region
// ids, empty or oversized prompts.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// RiskBreachError is returned when the LLM's self-assessed risk exceeds the
// configured threshold. The prompt is kept for the audit trail but never typed.
type RiskBreachError struct {
	Risk      float64
	Threshold float64
	Prompt    string
}

func (e *RiskBreachError) Error() string {
	return fmt.Sprintf("Risk threshold exceeded: %v > %v (generated prompt: '%s')", e.Risk, e.Threshold, e.Prompt)
}

// CompletedError signals that the LLM declared the task finished. It ends the
// run successfully and is not a failure.
type CompletedError struct {
	Reason string
}

func (e *CompletedError) Error() string { return "task completed: " + e.Reason }

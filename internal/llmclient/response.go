// File: internal/llmclient/response.go
package llmclient

import "fmt"

// ResponseKind discriminates the two possible LLM answers.
type ResponseKind int

const (
	// KindContinuation carries the next prompt and its self-assessed risk.
	KindContinuation ResponseKind = iota
	// KindCompleted means the LLM considers the task done.
	KindCompleted
)

func (k ResponseKind) String() string {
	switch k {
	case KindContinuation:
		return "continuation"
	case KindCompleted:
		return "completed"
	default:
		return fmt.Sprintf("ResponseKind(%d)", int(k))
	}
}

// Response is the decoded decision. Prompt and Risk are meaningful only for
// KindContinuation; Reason only for KindCompleted.
type Response struct {
	Kind   ResponseKind
	Prompt string
	Risk   float64
	Reason string
	// Fallback is true when the response came from keyword heuristics rather
	// than the structured contract.
	Fallback bool
}

// Continuation builds a continuation response.
func Continuation(prompt string, risk float64) *Response {
	return &Response{Kind: KindContinuation, Prompt: prompt, Risk: risk}
}

// Completed builds a completion response.
func Completed(reason string) *Response {
	return &Response{Kind: KindCompleted, Reason: reason}
}

// wireResponse is the JSON contract the model is asked to return.
type wireResponse struct {
	ContinuationPrompt     *string  `json:"continuation_prompt"`
	ContinuationPromptRisk *float64 `json:"continuation_prompt_risk"`
	TaskComplete           *bool    `json:"task_complete"`
	TaskCompleteReason     *string  `json:"task_complete_reason"`
}

// toResponse checks the decoded object against the contract.
func (w *wireResponse) toResponse() (*Response, error) {
	if w.TaskComplete == nil {
		return nil, fmt.Errorf("missing required field task_complete")
	}
	if *w.TaskComplete {
		reason := "Task completed"
		if w.TaskCompleteReason != nil && *w.TaskCompleteReason != "" {
			reason = *w.TaskCompleteReason
		}
		return Completed(reason), nil
	}

	if w.ContinuationPromptRisk == nil {
		return nil, fmt.Errorf("missing required field continuation_prompt_risk")
	}
	risk := *w.ContinuationPromptRisk
	if risk < 0 || risk > 1 {
		return nil, fmt.Errorf("continuation_prompt_risk %v outside [0.0, 1.0]", risk)
	}
	prompt := ""
	if w.ContinuationPrompt != nil {
		prompt = *w.ContinuationPrompt
	}
	return Continuation(prompt, risk), nil
}

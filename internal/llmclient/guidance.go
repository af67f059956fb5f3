// File: internal/llmclient/guidance.go
package llmclient

import "fmt"

// RiskGuidanceVersion identifies the revision of RiskGuidance. Bump it whenever
// the text changes so audit records can tell which rubric a decision used.
const RiskGuidanceVersion = "2024-11-v1"

// RiskGuidance is sent verbatim with every decision request.
const RiskGuidance = `Risk Assessment Guidelines:
- Low risk (0.0-0.33): Safe code changes inside workspace, no deletions, no external communication
- Medium risk (0.34-0.66): Git pushes, tag deletions, file operations inside workspace
- High risk (0.67-1.0): Operations outside workspace, elevated privileges, installing software, data transfer outside workspace

Consider the user's risk threshold when choosing the safest viable prompt.`

// DefaultSystemPrompt is used when an action does not configure its own.
const DefaultSystemPrompt = "You are an AI assistant helping with desktop automation. " +
	"Analyze the screen content and determine if the task is complete."

const responseContract = `Return ONLY a JSON object with this exact structure:
{
  "continuation_prompt": "<text for next action, or null if complete>",
  "continuation_prompt_risk": <risk level 0.0-1.0>,
  "task_complete": <true|false>,
  "task_complete_reason": "<explanation if complete, or null>"
}

Examples:
- Task complete: {"continuation_prompt": null, "continuation_prompt_risk": 0.0, "task_complete": true, "task_complete_reason": "All tests passed"}
- Task continuing: {"continuation_prompt": "click Run button", "continuation_prompt_risk": 0.2, "task_complete": false, "task_complete_reason": null}

Do not include any explanation or additional text outside the JSON.`

// BuildSystemMessage assembles the instruction text: base prompt, risk
// guidance, then the JSON contract.
func BuildSystemMessage(systemPrompt, riskGuidance string) string {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", systemPrompt, riskGuidance, responseContract)
}

func correctiveInstruction(parseErr error) string {
	return fmt.Sprintf("Previous response was invalid JSON. Error: %v. "+
		"Please return ONLY valid JSON with the exact structure specified.", parseErr)
}

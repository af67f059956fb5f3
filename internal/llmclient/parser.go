// File: internal/llmclient/parser.go
package llmclient

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	json "github.com/json-iterator/go"
	"github.com/xkilldash9x/loopautoma/internal/config"
)

// fencedJSONRegex extracts an object wrapped in a markdown fence. \x60 is a backtick.
var fencedJSONRegex = regexp.MustCompile("(?s)^\x60\x60\x60(?:json|JSON)?\\s*(.*?)\\s*\x60\x60\x60\\s*$")

// extractJSON strips markdown fences and, for conversational answers that embed
// an object, cuts the text down to the outermost braces.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if m := fencedJSONRegex.FindStringSubmatch(content); len(m) > 1 {
			return m[1]
		}
		return strings.TrimSpace(strings.Trim(content, "`"))
	}
	if !strings.HasPrefix(content, "{") {
		first, last := strings.Index(content, "{"), strings.LastIndex(content, "}")
		if first != -1 && last > first {
			return content[first : last+1]
		}
	}
	return content
}

// parseStructured decodes content against the JSON contract.
func parseStructured(content string) (*Response, error) {
	candidate := extractJSON(content)
	var w wireResponse
	if err := json.Unmarshal([]byte(candidate), &w); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v (extracted: %s)", err, truncateString(candidate, 200))
	}
	return w.toResponse()
}

// FallbackPolicy classifies free-form answers by keyword when the structured
// contract was not honoured.
type FallbackPolicy struct {
	// WholeWord requires keywords to match on word boundaries instead of as substrings.
	WholeWord    bool
	Completion   []string
	Success      []string
	Failure      []string
	Continuation []string
	DefaultRisk  float64
}

// DefaultFallbackPolicy returns the substring-matching keyword policy.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		Completion:   []string{"DONE", "COMPLETE", "FINISHED", "TASK_COMPLETE"},
		Success:      []string{"SUCCESS", "PASSED"},
		Failure:      []string{"FAIL", "ERROR"},
		Continuation: []string{"CONTINUE", "NEXT", "MORE"},
		DefaultRisk:  0.3,
	}
}

// FallbackPolicyFromConfig converts the config section, keeping defaults for
// empty keyword lists. DefaultRisk is taken as configured, zero included.
func FallbackPolicyFromConfig(cfg config.FallbackConfig) FallbackPolicy {
	p := DefaultFallbackPolicy()
	p.WholeWord = cfg.Match == "word"
	if len(cfg.CompletionKeywords) > 0 {
		p.Completion = cfg.CompletionKeywords
	}
	if len(cfg.SuccessKeywords) > 0 {
		p.Success = cfg.SuccessKeywords
	}
	if len(cfg.FailureKeywords) > 0 {
		p.Failure = cfg.FailureKeywords
	}
	if len(cfg.ContinuationKeywords) > 0 {
		p.Continuation = cfg.ContinuationKeywords
	}
	p.DefaultRisk = cfg.DefaultRisk
	return p
}

// Classify applies the keyword rules. matched is false when no keyword was found
// and the returned response is the low-confidence default.
func (p FallbackPolicy) Classify(content string) (resp *Response, matched bool) {
	upper := strings.ToUpper(content)

	if p.containsAny(upper, p.Completion) {
		reason := "Task completed"
		switch {
		case p.containsAny(upper, p.Success):
			reason = "Task completed successfully"
		case p.containsAny(upper, p.Failure):
			reason = "Task completed with errors"
		}
		r := Completed(reason)
		r.Fallback = true
		return r, true
	}

	if p.containsAny(upper, p.Continuation) {
		r := Continuation(p.continuationPrompt(content), p.DefaultRisk)
		r.Fallback = true
		return r, true
	}

	return p.Default(content), false
}

// Default is the low-confidence continuation built from the first non-empty line.
func (p FallbackPolicy) Default(content string) *Response {
	prompt := "continue"
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompt = line
			break
		}
	}
	r := Continuation(prompt, p.DefaultRisk)
	r.Fallback = true
	return r
}

// continuationPrompt takes the text from the first continuation keyword to the
// end of its line.
func (p FallbackPolicy) continuationPrompt(content string) string {
	for _, line := range strings.Split(content, "\n") {
		upperLine := strings.ToUpper(line)
		idx := p.firstIndex(upperLine, p.Continuation)
		if idx < 0 {
			continue
		}
		// Case mapping can change byte lengths; use the whole line when it does.
		if len(upperLine) == len(line) {
			line = line[idx:]
		}
		if prompt := strings.TrimSpace(line); prompt != "" {
			return prompt
		}
	}
	return "continue"
}

func (p FallbackPolicy) containsAny(upper string, keywords []string) bool {
	return p.firstIndex(upper, keywords) >= 0
}

// firstIndex returns the earliest byte offset of any keyword in upper, or -1.
func (p FallbackPolicy) firstIndex(upper string, keywords []string) int {
	best := -1
	for _, kw := range keywords {
		kw = strings.ToUpper(kw)
		if kw == "" {
			continue
		}
		idx := indexKeyword(upper, kw, p.WholeWord)
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

func indexKeyword(s, kw string, wholeWord bool) int {
	if !wholeWord {
		return strings.Index(s, kw)
	}
	for offset := 0; offset <= len(s); {
		idx := strings.Index(s[offset:], kw)
		if idx < 0 {
			return -1
		}
		start, end := offset+idx, offset+idx+len(kw)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return start
		}
		offset = start + 1
	}
	return -1
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	return s[:maxLen] + "..."
}

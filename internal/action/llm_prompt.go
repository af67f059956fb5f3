// File: internal/action/llm_prompt.go
package action

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/llmclient"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

// DefaultVariableName is bound when an LLMPromptGeneration names no variable.
const DefaultVariableName = "prompt"

// Alarmer raises an audible alarm without blocking.
type Alarmer interface {
	Raise(reason string)
}

// LLMPromptGeneration captures the referenced regions, asks the LLM for the
// next prompt and binds it to VariableName, subject to the risk gate.
//
// It never touches the input backend; the prompt only reaches the screen
// through a later TypeText action that references the variable.
type LLMPromptGeneration struct {
	RegionIDs         []string
	RiskThreshold     float64
	SystemPrompt      string
	VariableName      string
	MaxImageDimension int

	// Regions is the profile's region list, copied at build time.
	Regions  []screen.Region
	Capturer screen.FrameSource
	Client   llmclient.Client
	Alarm    Alarmer
	Logger   *zap.Logger
}

func (*LLMPromptGeneration) Name() string { return "LLMPromptGeneration" }
func (*LLMPromptGeneration) sealed()      {}

func (a *LLMPromptGeneration) variableName() string {
	if a.VariableName == "" {
		return DefaultVariableName
	}
	return a.VariableName
}

func (a *LLMPromptGeneration) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// resolveRegions maps RegionIDs onto the profile's regions, preserving order.
func (a *LLMPromptGeneration) resolveRegions() ([]screen.Region, error) {
	out := make([]screen.Region, 0, len(a.RegionIDs))
	for _, id := range a.RegionIDs {
		found := false
		for _, r := range a.Regions {
			if r.ID == id {
				out = append(out, r)
				found = true
				break
			}
		}
		if !found {
			return nil, &ValidationError{Msg: fmt.Sprintf("Region '%s' not found", id)}
		}
	}
	return out, nil
}

func (a *LLMPromptGeneration) Execute(ctx context.Context, _ input.Automation, vars *Context) error {
	regions, err := a.resolveRegions()
	if err != nil {
		return err
	}

	images := make([][]byte, 0, len(regions))
	for _, r := range regions {
		frame, err := a.Capturer.CaptureRegion(ctx, r)
		if err != nil {
			return fmt.Errorf("failed to capture region '%s': %w", r.ID, err)
		}
		png, err := screen.EncodePNG(frame, a.MaxImageDimension)
		if err != nil {
			return fmt.Errorf("failed to encode region '%s': %w", r.ID, err)
		}
		images = append(images, png)
	}

	// Last cancellation point before the (slow) LLM round trip.
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := a.Client.GeneratePrompt(ctx, llmclient.PromptRequest{
		Regions:      regions,
		Images:       images,
		SystemPrompt: a.SystemPrompt,
		RiskGuidance: llmclient.RiskGuidance,
	})
	if err != nil {
		return fmt.Errorf("LLM prompt generation failed: %w", err)
	}

	if resp.Kind == llmclient.KindCompleted {
		a.logger().Info("LLM reported task complete", zap.String("reason", resp.Reason))
		return &CompletedError{Reason: resp.Reason}
	}

	if resp.Risk > a.RiskThreshold {
		breach := &RiskBreachError{Risk: resp.Risk, Threshold: a.RiskThreshold, Prompt: resp.Prompt}
		if a.Alarm != nil {
			a.Alarm.Raise(breach.Error())
		}
		a.logger().Warn("Risk threshold exceeded",
			zap.Float64("risk", resp.Risk),
			zap.Float64("threshold", a.RiskThreshold),
			zap.String("prompt", resp.Prompt))
		return breach
	}

	if resp.Prompt == "" {
		return &ValidationError{Msg: "LLM returned empty prompt"}
	}
	if n := utf8.RuneCountInString(resp.Prompt); n > MaxPromptLength {
		return &ValidationError{Msg: fmt.Sprintf("LLM prompt too long: %d characters (max %d)", n, MaxPromptLength)}
	}

	vars.Set(a.variableName(), resp.Prompt)
	a.logger().Info("Continuation prompt accepted",
		zap.String("variable", a.variableName()),
		zap.Float64("risk", resp.Risk),
		zap.Bool("fallback", resp.Fallback))
	return nil
}

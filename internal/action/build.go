// File: internal/action/build.go
package action

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/llmclient"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

// Deps are the collaborators injected into actions at build time.
type Deps struct {
	Regions           []screen.Region
	Capturer          screen.FrameSource
	Client            llmclient.Client
	Alarm             Alarmer
	Logger            *zap.Logger
	MaxImageDimension int
}

// Build converts one serialized action into its concrete type.
func Build(cfg config.ActionConfig, deps Deps) (Action, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case config.ActionMoveCursor:
		return &MoveCursor{X: cfg.X, Y: cfg.Y}, nil

	case config.ActionClick:
		button, err := input.ParseButton(cfg.Button)
		if err != nil {
			return nil, err
		}
		return &Click{Button: button}, nil

	case config.ActionTypeText:
		return &TypeText{Text: cfg.Text}, nil

	case config.ActionKey:
		if cfg.Key == "" {
			return nil, fmt.Errorf("key action requires a key name")
		}
		return &Key{Key: cfg.Key, Logger: logger.Named("action.key")}, nil

	case config.ActionLLMPromptGeneration:
		if deps.Capturer == nil || deps.Client == nil {
			return nil, fmt.Errorf("llm_prompt_generation requires a capturer and an LLM client")
		}
		if cfg.RiskThreshold < 0 || cfg.RiskThreshold > 1 {
			return nil, fmt.Errorf("risk_threshold %v outside [0.0, 1.0]", cfg.RiskThreshold)
		}
		if cfg.VariableName != "" && !config.ValidVariableName(cfg.VariableName) {
			return nil, fmt.Errorf("variable_name %q must match [A-Za-z_][A-Za-z0-9_]*", cfg.VariableName)
		}
		return &LLMPromptGeneration{
			RegionIDs:         append([]string(nil), cfg.RegionIDs...),
			RiskThreshold:     cfg.RiskThreshold,
			SystemPrompt:      cfg.SystemPrompt,
			VariableName:      cfg.VariableName,
			MaxImageDimension: deps.MaxImageDimension,
			Regions:           append([]screen.Region(nil), deps.Regions...),
			Capturer:          deps.Capturer,
			Client:            deps.Client,
			Alarm:             deps.Alarm,
			Logger:            logger.Named("action.llm"),
		}, nil

	default:
		return nil, fmt.Errorf("unknown action type %q", cfg.Type)
	}
}

// BuildAll builds a whole sequence, reporting the index of the first failure.
func BuildAll(cfgs []config.ActionConfig, deps Deps) ([]Action, error) {
	actions := make([]Action, 0, len(cfgs))
	for i, c := range cfgs {
		a, err := Build(c, deps)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

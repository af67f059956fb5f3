// File: internal/config/profile.go
package config

import (
	"fmt"
	"regexp"
	"time"
)

var variableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidVariableName reports whether name can be referenced as $name in a
// type_text template.
func ValidVariableName(name string) bool {
	return variableNameRegex.MatchString(name)
}

// ProfileConfig describes one automation profile: the regions to watch, how often
// to poll them and the action sequence executed whenever they change.
type ProfileConfig struct {
	ID         string         `mapstructure:"id" yaml:"id"`
	Name       string         `mapstructure:"name" yaml:"name"`
	Regions    []RegionConfig `mapstructure:"regions" yaml:"regions"`
	Watch      []string       `mapstructure:"watch" yaml:"watch"`
	Interval   time.Duration  `mapstructure:"interval" yaml:"interval"`
	Downscale  uint32         `mapstructure:"downscale" yaml:"downscale"`
	Cooldown   time.Duration  `mapstructure:"cooldown" yaml:"cooldown"`
	MaxRuntime time.Duration  `mapstructure:"max_runtime" yaml:"max_runtime"`
	Actions    []ActionConfig `mapstructure:"actions" yaml:"actions"`
}

// RegionConfig is a named rectangle in virtual-desktop coordinates.
type RegionConfig struct {
	ID     string `mapstructure:"id" yaml:"id"`
	Name   string `mapstructure:"name" yaml:"name"`
	X      int    `mapstructure:"x" yaml:"x"`
	Y      int    `mapstructure:"y" yaml:"y"`
	Width  int    `mapstructure:"width" yaml:"width"`
	Height int    `mapstructure:"height" yaml:"height"`
}

// Action type identifiers accepted in ActionConfig.Type.
const (
	ActionMoveCursor          = "move_cursor"
	ActionClick               = "click"
	ActionTypeText            = "type_text"
	ActionKey                 = "key"
	ActionLLMPromptGeneration = "llm_prompt_generation"
)

// ActionConfig is the serialized form of a single action. Only the fields
// relevant to Type are read.
type ActionConfig struct {
	Type string `mapstructure:"type" yaml:"type"`

	X      int    `mapstructure:"x" yaml:"x,omitempty"`
	Y      int    `mapstructure:"y" yaml:"y,omitempty"`
	Button string `mapstructure:"button" yaml:"button,omitempty"`
	Text   string `mapstructure:"text" yaml:"text,omitempty"`
	Key    string `mapstructure:"key" yaml:"key,omitempty"`

	RegionIDs     []string `mapstructure:"region_ids" yaml:"region_ids,omitempty"`
	RiskThreshold float64  `mapstructure:"risk_threshold" yaml:"risk_threshold,omitempty"`
	SystemPrompt  string   `mapstructure:"system_prompt" yaml:"system_prompt,omitempty"`
	VariableName  string   `mapstructure:"variable_name" yaml:"variable_name,omitempty"`
}

// Validate checks a profile for structural problems. Action-level semantics are
// checked again when the profile is built.
func (p ProfileConfig) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if len(p.Actions) == 0 {
		return fmt.Errorf("profile %q has no actions", p.ID)
	}
	if p.Interval < 0 || p.Cooldown < 0 || p.MaxRuntime < 0 {
		return fmt.Errorf("profile %q: durations must not be negative", p.ID)
	}

	regions := make(map[string]struct{}, len(p.Regions))
	for _, r := range p.Regions {
		if r.ID == "" {
			return fmt.Errorf("profile %q: region id is required", p.ID)
		}
		if _, dup := regions[r.ID]; dup {
			return fmt.Errorf("profile %q: duplicate region id %q", p.ID, r.ID)
		}
		if r.Width < 0 || r.Height < 0 {
			return fmt.Errorf("profile %q: region %q has negative size", p.ID, r.ID)
		}
		regions[r.ID] = struct{}{}
	}
	for _, id := range p.Watch {
		if _, ok := regions[id]; !ok {
			return fmt.Errorf("profile %q: watched region %q is not defined", p.ID, id)
		}
	}

	for i, a := range p.Actions {
		switch a.Type {
		case ActionMoveCursor, ActionClick, ActionTypeText, ActionKey:
		case ActionLLMPromptGeneration:
			if a.RiskThreshold < 0 || a.RiskThreshold > 1 {
				return fmt.Errorf("profile %q: actions[%d].risk_threshold must be between 0.0 and 1.0", p.ID, i)
			}
			if a.VariableName != "" && !ValidVariableName(a.VariableName) {
				return fmt.Errorf("profile %q: actions[%d].variable_name %q is not a valid identifier", p.ID, i, a.VariableName)
			}
		default:
			return fmt.Errorf("profile %q: actions[%d] has unknown type %q", p.ID, i, a.Type)
		}
	}
	return nil
}

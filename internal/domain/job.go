package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode selects which flavour of dataset image a request produces.
type Mode string

const (
	ModeShotType   Mode = "shot_type"
	ModeExpression Mode = "expression"
)

// ShotTypes is indexed by request index modulo its length.
var ShotTypes = [4]string{"closeup", "bustShot", "fullShot", "kneeShot"}

// ExpressionShotType is the framing every expression-mode image derives from.
const ExpressionShotType = "bustShot"

// GenerateRequest is the caller-facing description of one dataset image.
type GenerateRequest struct {
	Mode          Mode   `json:"mode"`
	TriggerWord   string `json:"trigger_word"`
	CharacterName string `json:"character_name"`
	Index         int    `json:"index"`
	Expression    string `json:"expression,omitempty"`
	Angle         string `json:"angle,omitempty"`
}

// normalizeIdentifier lowercases free-form identifiers. Casers are stateful, so one is built per call.
func normalizeIdentifier(v string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(v))
}

// Normalize trims identifiers and defaults the mode to shot_type.
func (r *GenerateRequest) Normalize() {
	if r == nil {
		return
	}
	r.Mode = Mode(normalizeIdentifier(string(r.Mode)))
	if r.Mode == "" {
		r.Mode = ModeShotType
	}
	r.TriggerWord = strings.TrimSpace(r.TriggerWord)
	r.CharacterName = strings.TrimSpace(r.CharacterName)
	r.Expression = normalizeIdentifier(r.Expression)
	r.Angle = normalizeIdentifier(r.Angle)
}

// Validate reports missing or inconsistent fields as ErrConfiguration.
func (r GenerateRequest) Validate() error {
	if r.TriggerWord == "" {
		return fmt.Errorf("%w: trigger_word is required", ErrConfiguration)
	}
	if strings.ContainsAny(r.TriggerWord, `/\*?[]`) {
		return fmt.Errorf("%w: trigger_word must not contain path or pattern characters", ErrConfiguration)
	}
	if strings.ContainsAny(r.CharacterName, `/\`) || strings.Contains(r.CharacterName, "..") {
		return fmt.Errorf("%w: character_name must not contain path separators", ErrConfiguration)
	}
	if r.Index < 0 {
		return fmt.Errorf("%w: index must not be negative", ErrConfiguration)
	}
	switch r.Mode {
	case ModeShotType:
		return nil
	case ModeExpression:
		if r.Expression == "" || r.Angle == "" {
			return fmt.Errorf("%w: expression mode requires expression and angle", ErrConfiguration)
		}
		if strings.ContainsAny(r.Expression+r.Angle, `/\.*?[]`) {
			return fmt.Errorf("%w: expression and angle must be plain identifiers", ErrConfiguration)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported mode %q", ErrConfiguration, r.Mode)
	}
}

// ShotType returns the framing used for the request.
func (r GenerateRequest) ShotType() string {
	if r.Mode == ModeExpression {
		return ExpressionShotType
	}
	idx := r.Index % len(ShotTypes)
	if idx < 0 {
		idx += len(ShotTypes)
	}
	return ShotTypes[idx]
}

// Qualifier is the mode-specific token embedded in sidecar file names.
func (r GenerateRequest) Qualifier() string {
	if r.Mode == ModeExpression {
		return r.Expression + "_" + r.Angle
	}
	return r.ShotType()
}

// RunStatus enumerates run lifecycle states.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the ledger entry for one orchestrated job. The engine session id is
// scoped to tracking and is never part of it.
type Run struct {
	ID                 string    `json:"id"`
	PromptID           string    `json:"prompt_id"`
	Mode               Mode      `json:"mode"`
	TriggerWord        string    `json:"trigger_word"`
	CharacterName      string    `json:"character_name"`
	Index              int       `json:"index"`
	Status             RunStatus `json:"status"`
	ArtifactName       string    `json:"artifact_name"`
	CompletionStrategy string    `json:"completion_strategy,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

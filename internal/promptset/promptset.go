// Package promptset loads categorized prompt pools and composes prompt text from them.
package promptset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"datasetgen/internal/domain"
	"datasetgen/internal/infra"
)

// DefaultFile is used when a request-specific prompt set does not exist.
const DefaultFile = "PromptSet.json"

// Category is one slot of a prompt; exactly one of its prompts is chosen.
type Category struct {
	Category string   `json:"category"`
	Prompts  []string `json:"prompts"`
}

// Set is an ordered list of categories.
type Set []Category

// Load reads a prompt set file. A missing file wraps domain.ErrNotFound.
func Load(path string) (Set, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("promptset: %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("promptset: read %s: %w", path, err)
	}
	var set Set
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("promptset: decode %s: %w", path, err)
	}
	return set, nil
}

// Compose picks one prompt per category, terminates each with a period and
// joins them with spaces. Categories without prompts are skipped.
func (s Set) Compose(pick func(n int) int) string {
	if pick == nil {
		pick = rand.IntN
	}
	lines := make([]string, 0, len(s))
	for _, c := range s {
		if len(c.Prompts) == 0 {
			continue
		}
		sentence := strings.TrimSpace(c.Prompts[pick(len(c.Prompts))])
		if !strings.HasSuffix(sentence, ".") {
			sentence += "."
		}
		lines = append(lines, sentence)
	}
	return strings.Join(lines, " ")
}

// Library resolves prompt sets below a data directory.
type Library struct {
	root   string
	logger *infra.Logger
	pick   func(n int) int
}

// NewLibrary constructs a library rooted at dir.
func NewLibrary(dir string, logger *infra.Logger) *Library {
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Library{root: dir, logger: logger, pick: rand.IntN}
}

// PathFor returns the request-specific prompt set path.
func (l *Library) PathFor(req domain.GenerateRequest) string {
	if req.Mode == domain.ModeExpression {
		return filepath.Join(l.root, req.CharacterName, req.Expression, req.Angle+"_"+DefaultFile)
	}
	return filepath.Join(l.root, req.CharacterName, req.ShotType(), DefaultFile)
}

// Prompt loads the prompt set for req, falling back to the default set, and composes a prompt.
func (l *Library) Prompt(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := l.PathFor(req)
	set, err := Load(path)
	if errors.Is(err, domain.ErrNotFound) {
		fallback := filepath.Join(l.root, DefaultFile)
		l.logger.Warn().Str("prompt_set", path).Str("fallback", fallback).Msg("promptset: falling back to default prompt set")
		set, err = Load(fallback)
	}
	if err != nil {
		return "", err
	}
	l.logger.Debug().Str("prompt_set", path).Int("categories", len(set)).Msg("promptset: loaded")
	return set.Compose(l.pick), nil
}

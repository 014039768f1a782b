// Package pipeline runs one dataset request end to end: build the job
// description, submit it, track it to completion and write the sidecar tag.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"datasetgen/internal/domain"
	"datasetgen/internal/engine"
	"datasetgen/internal/infra"
	"datasetgen/internal/workflow"
)

// Submitter queues a job description on the engine.
type Submitter interface {
	Submit(ctx context.Context, desc workflow.Description) (engine.Submission, error)
}

// CompletionTracker waits for a submitted job to complete.
type CompletionTracker interface {
	Track(ctx context.Context, sessionID, promptID string, nodes workflow.NodeSet, timeout time.Duration) (engine.Completion, error)
}

// PromptSource composes the prompt text for a request.
type PromptSource interface {
	Prompt(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// ArtifactStore is the engine output directory.
type ArtifactStore interface {
	Glob(ctx context.Context, pattern string) ([]string, error)
	Append(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Config holds the per-request limits.
type Config struct {
	TrackTimeout    time.Duration
	JobDeadline     time.Duration
	SidecarAttempts int
	SidecarBackoff  time.Duration
}

// ConfigFromInfra maps service configuration onto pipeline limits.
func ConfigFromInfra(cfg *infra.Config) Config {
	return Config{
		TrackTimeout:    cfg.EngineTrackTimeout,
		JobDeadline:     cfg.JobDeadline,
		SidecarAttempts: cfg.SidecarRetryAttempts,
		SidecarBackoff:  cfg.SidecarRetryBackoff,
	}
}

// Dependencies are the collaborators of a Runner. Runs is optional.
type Dependencies struct {
	Template  *workflow.Template
	Submitter Submitter
	Tracker   CompletionTracker
	Prompts   PromptSource
	Store     ArtifactStore
	Runs      domain.RunRepository
	Logger    *infra.Logger
}

// Runner orchestrates requests. It keeps no per-request state and is safe
// for concurrent use.
type Runner struct {
	cfg       Config
	template  *workflow.Template
	submitter Submitter
	tracker   CompletionTracker
	prompts   PromptSource
	store     ArtifactStore
	runs      domain.RunRepository
	logger    *infra.Logger
	newID     func() string
	sleep     func(ctx context.Context, d time.Duration) error
}

// Result is returned once the engine confirmed completion.
type Result struct {
	RunID              string          `json:"run_id"`
	PromptText         string          `json:"prompt"`
	OutputArtifactName string          `json:"image"`
	PromptID           string          `json:"prompt_id"`
	Strategy           engine.Strategy `json:"completion_strategy"`
	SidecarTagged      bool            `json:"sidecar_tagged"`
}

// NewRunner validates dependencies and applies defaults.
func NewRunner(cfg Config, deps Dependencies) (*Runner, error) {
	switch {
	case deps.Template == nil:
		return nil, errors.New("pipeline: template is required")
	case deps.Submitter == nil:
		return nil, errors.New("pipeline: submitter is required")
	case deps.Tracker == nil:
		return nil, errors.New("pipeline: tracker is required")
	case deps.Prompts == nil:
		return nil, errors.New("pipeline: prompt source is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: artifact store is required")
	}
	if cfg.JobDeadline <= 0 {
		cfg.JobDeadline = 10 * time.Minute
	}
	if cfg.SidecarAttempts < 1 {
		cfg.SidecarAttempts = 1
	}
	logger := deps.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Runner{
		cfg:       cfg,
		template:  deps.Template,
		submitter: deps.Submitter,
		tracker:   deps.Tracker,
		prompts:   deps.Prompts,
		store:     deps.Store,
		runs:      deps.Runs,
		logger:    logger,
		newID:     uuid.NewString,
		sleep:     sleepContext,
	}, nil
}

// RunJob builds, submits and tracks one request. It returns an error unless
// the engine confirmed completion; a failed sidecar write is only logged.
func (r *Runner) RunJob(ctx context.Context, req domain.GenerateRequest) (Result, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	log := r.logger.With().
		Str("mode", string(req.Mode)).
		Str("trigger", req.TriggerWord).
		Int("index", req.Index).
		Logger()

	input, err := r.resolveInput(ctx, log, req)
	if err != nil {
		return Result{}, err
	}
	prompt, err := r.prompts.Prompt(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: prompt: %w", err)
	}
	desc, err := r.template.Build(req, prompt, input)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		RunID:              r.newID(),
		PromptText:         prompt,
		OutputArtifactName: workflow.OutputArtifactName(req),
	}
	run := &domain.Run{
		ID:            result.RunID,
		Mode:          req.Mode,
		TriggerWord:   req.TriggerWord,
		CharacterName: req.CharacterName,
		Index:         req.Index,
		Status:        domain.RunStatusRunning,
		ArtifactName:  result.OutputArtifactName,
	}
	r.recordStart(ctx, log, run)

	completion, sub, err := r.execute(ctx, log, desc)
	run.PromptID = sub.PromptID
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = err.Error()
		r.recordFinish(ctx, log, run)
		return Result{}, err
	}
	result.PromptID = completion.PromptID
	result.Strategy = completion.Strategy
	run.Status = domain.RunStatusSucceeded
	run.CompletionStrategy = string(completion.Strategy)

	result.SidecarTagged = r.tagSidecar(ctx, log, req)
	r.recordFinish(ctx, log, run)

	log.Info().
		Str("prompt_id", result.PromptID).
		Str("artifact", result.OutputArtifactName).
		Str("strategy", string(result.Strategy)).
		Msg("pipeline: request finished")
	return result, nil
}

// execute submits and tracks within the job deadline.
func (r *Runner) execute(ctx context.Context, log zerolog.Logger, desc workflow.Description) (engine.Completion, engine.Submission, error) {
	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobDeadline)
	defer cancel()

	sub, err := r.submitter.Submit(jobCtx, desc)
	if err != nil {
		return engine.Completion{}, engine.Submission{}, err
	}
	nodes := desc.NodeSet()
	log.Info().
		Str("prompt_id", sub.PromptID).
		Str("session_id", sub.SessionID).
		Int("nodes", len(nodes)).
		Msg("pipeline: job submitted")

	completion, err := r.tracker.Track(jobCtx, sub.SessionID, sub.PromptID, nodes, r.cfg.TrackTimeout)
	if err != nil {
		if !errors.Is(err, domain.ErrTracking) {
			err = &engine.TrackingError{PromptID: sub.PromptID, Reason: "tracker failed", Err: err}
		}
		return engine.Completion{}, sub, err
	}
	return completion, sub, nil
}

// resolveInput returns the conditioning image name for req. A missing
// shot_type input is only logged; the engine rejects the submission itself.
func (r *Runner) resolveInput(ctx context.Context, log zerolog.Logger, req domain.GenerateRequest) (string, error) {
	if req.Mode != domain.ModeExpression {
		name := workflow.InputArtifactName(req)
		if ok, err := r.store.Exists(ctx, name); err != nil || !ok {
			log.Warn().Err(err).Str("input", name).Msg("pipeline: input artifact not in output dir")
		}
		return name, nil
	}
	base := domain.ExpressionShotType + "_" + req.TriggerWord
	var candidates []string
	for _, pattern := range []string{base + ".png", base + "_[0-9]*.png"} {
		matches, err := r.store.Glob(ctx, pattern)
		if err != nil {
			return "", fmt.Errorf("pipeline: find input artifacts: %w", err)
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("pipeline: no %s input artifacts for %s: %w", domain.ExpressionShotType, req.TriggerWord, domain.ErrNotFound)
	}
	return candidates[req.Index%len(candidates)], nil
}

// tagSidecar appends the request tags to the caption file written by the
// engine, retrying while the file may not be flushed yet.
func (r *Runner) tagSidecar(ctx context.Context, log zerolog.Logger, req domain.GenerateRequest) bool {
	key := workflow.MetadataFileName(req)
	tag := []byte(", " + strings.Join(sidecarTags(req), ", "))
	var err error
	for attempt := 1; attempt <= r.cfg.SidecarAttempts; attempt++ {
		if err = r.store.Append(ctx, key, tag); err == nil {
			return true
		}
		if attempt == r.cfg.SidecarAttempts {
			break
		}
		if sleepErr := r.sleep(ctx, r.cfg.SidecarBackoff); sleepErr != nil {
			err = sleepErr
			break
		}
	}
	log.Warn().
		Err(fmt.Errorf("%w: %v", domain.ErrSideEffect, err)).
		Str("sidecar", key).
		Int("attempts", r.cfg.SidecarAttempts).
		Msg("pipeline: sidecar tag not written")
	return false
}

func sidecarTags(req domain.GenerateRequest) []string {
	if req.Mode == domain.ModeExpression {
		return []string{req.Expression, strings.ReplaceAll(req.Angle, "_", " ")}
	}
	return []string{req.ShotType()}
}

func (r *Runner) recordStart(ctx context.Context, log zerolog.Logger, run *domain.Run) {
	if r.runs == nil {
		return
	}
	if err := r.runs.Create(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("pipeline: run ledger insert failed")
	}
}

func (r *Runner) recordFinish(ctx context.Context, log zerolog.Logger, run *domain.Run) {
	if r.runs == nil {
		return
	}
	// The request context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.runs.Finish(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("pipeline: run ledger update failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

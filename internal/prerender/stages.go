package prerender

import (
	"context"
	"fmt"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageExclusions     StageName = "exclusions"
	StageCollectHooks   StageName = "collect_hook_urls"
	StageStaticRoutes   StageName = "static_routes"
	StageTransformHook  StageName = "transform_hook"
	StageRouteAndRender StageName = "route_and_render"
	StageWrite          StageName = "write"
	StageValidate       StageName = "validate"
)

// StageErrorKind classifies the outcome of a failed stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"
	StageErrorCanceled StageErrorKind = "canceled"
)

// StageError wraps the error that aborted a stage.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageResult captures the outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

type stageFunc func(ctx context.Context, rs *runState) error

type stageDef struct {
	name StageName
	fn   stageFunc
}

// pipeline is an ordered list of stages.
type pipeline struct{ defs []stageDef }

func newPipeline() *pipeline { return &pipeline{defs: make([]stageDef, 0, 7)} }

func (p *pipeline) add(name StageName, fn stageFunc) *pipeline {
	p.defs = append(p.defs, stageDef{name: name, fn: fn})
	return p
}

func defaultPipeline() *pipeline {
	return newPipeline().
		add(StageExclusions, stageExclusions).
		add(StageCollectHooks, stageCollectHookURLs).
		add(StageStaticRoutes, stageStaticRoutes).
		add(StageTransformHook, stageTransformHook).
		add(StageRouteAndRender, stageRouteAndRender).
		add(StageWrite, stageWrite).
		add(StageValidate, stageValidate)
}

package jobs

import (
	"strings"
	"time"
)

// Stage identifies which pipeline stage a job runs.
type Stage string

const (
	StageIdeaGeneration   Stage = "idea_generation"
	StageResearch         Stage = "research"
	StageWriting          Stage = "writing"
	StageImageGeneration  Stage = "image_generation"
	StageSocialGeneration Stage = "social_generation"
)

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StageIdeaGeneration, StageResearch, StageWriting, StageImageGeneration, StageSocialGeneration:
		return normalized, true
	}
	return "", false
}

// State is the lifecycle state of a job.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StatePending, StateInProgress, StateSucceeded, StateFailed:
		return normalized, true
	}
	return "", false
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Job is one unit of asynchronous stage work tracked in the queue table.
type Job struct {
	ID                 string
	Stage              Stage
	EntityID           int64
	State              State
	CurrentStep        int
	TotalSteps         int
	StatusText         string
	ResultJSON         string
	ErrorMessage       string
	SuppressedFailures int
	CreatedAt          time.Time
	UpdatedAt          time.Time
	StartedAt          *time.Time
	FinishedAt         *time.Time
	LastHeartbeat      *time.Time
}

// Status is the externally visible view of a job returned by polling.
//
// Polling never mutates the job, so repeated status calls for the same
// handle observe a monotonically advancing snapshot.
type Status struct {
	Handle             string         `json:"handle"`
	Stage              Stage          `json:"stage,omitempty"`
	EntityID           int64          `json:"entity_id,omitempty"`
	State              State          `json:"state"`
	CurrentStep        int            `json:"current_step"`
	TotalSteps         int            `json:"total_steps"`
	StatusText         string         `json:"status_text,omitempty"`
	Result             map[string]any `json:"result,omitempty"`
	Error              string         `json:"error,omitempty"`
	SuppressedFailures int            `json:"suppressed_failures,omitempty"`
	Caveat             string         `json:"caveat,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	FinishedAt         *time.Time     `json:"finished_at,omitempty"`
}

// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package models

import "fmt"

type StateKind int

const (
	StateCreated StateKind = iota + 1
	StateUploading
	StateCompleted
	StateFailed
)

func (k StateKind) String() string {
	switch k {
	case StateCreated:
		return "created"
	case StateUploading:
		return "uploading"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("StateKind(%d)", int(k))
}

// PipelineState is one transition reported by an upload run. Only the field
// matching Kind is set.
type PipelineState struct {
	Kind      StateKind
	Container *Container
	Progress  *Progress
	Err       error
}

func Created(c *Container) PipelineState {
	return PipelineState{Kind: StateCreated, Container: c}
}

func Uploading(p *Progress) PipelineState {
	return PipelineState{Kind: StateUploading, Progress: p}
}

func Completed(c *Container) PipelineState {
	return PipelineState{Kind: StateCompleted, Container: c}
}

func Failed(err error) PipelineState {
	return PipelineState{Kind: StateFailed, Err: err}
}

// Terminal reports whether no further state follows.
func (s PipelineState) Terminal() bool {
	return s.Kind == StateCompleted || s.Kind == StateFailed
}

func (s PipelineState) String() string {
	switch s.Kind {
	case StateFailed:
		return fmt.Sprintf("failed: %v", s.Err)
	case StateUploading:
		if s.Progress != nil {
			return fmt.Sprintf("uploading (%.0f%%)", s.Progress.Fraction()*100)
		}
	}
	return s.Kind.String()
}

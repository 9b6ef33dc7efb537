// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package task

// Result holds either a value or an error, never both.
type Result[T any] struct {
	Value T
	Err   error
}

func Success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Failure[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) Get() (T, error) {
	return r.Value, r.Err
}

func (r Result[T]) Failed() bool {
	return r.Err != nil
}

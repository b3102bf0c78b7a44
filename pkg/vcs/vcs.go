// Package vcs answers the two version-control questions a firmware build
// needs: how many commits lead to the current revision and what its short
// identifier is.
package vcs

import (
	"context"
	"errors"
)

var (
	// ErrToolUnavailable reports that the version-control binary could not be started.
	ErrToolUnavailable = errors.New("vcs: tool unavailable")
	// ErrCommandFailed reports a non-zero exit or a timed out invocation.
	ErrCommandFailed = errors.New("vcs: command failed")
	// ErrUnparsableOutput reports output that does not have the expected shape.
	ErrUnparsableOutput = errors.New("vcs: unparsable output")
)

// Provider describes the version queries consumed by the version resolver.
type Provider interface {
	// CommitCount returns the number of commits reachable from the revision.
	CommitCount(ctx context.Context) (int, error)
	// ShortHash returns the abbreviated identifier of the revision.
	ShortHash(ctx context.Context) (string, error)
}

// Static is a Provider that answers with fixed values. A non-nil error field
// takes precedence over the matching value.
type Static struct {
	Count    int
	CountErr error
	Hash     string
	HashErr  error
}

// CommitCount returns the configured count or error.
func (s Static) CommitCount(context.Context) (int, error) {
	if s.CountErr != nil {
		return 0, s.CountErr
	}

	return s.Count, nil
}

// ShortHash returns the configured hash or error.
func (s Static) ShortHash(context.Context) (string, error) {
	if s.HashErr != nil {
		return "", s.HashErr
	}

	return s.Hash, nil
}

// Override wraps a Provider and pins either query to a fixed answer. Nil
// fields fall through to the delegate.
type Override struct {
	Delegate Provider
	Count    *int
	Hash     *string
}

// CommitCount returns the pinned count when set, else asks the delegate.
func (o Override) CommitCount(ctx context.Context) (int, error) {
	if o.Count != nil {
		return *o.Count, nil
	}

	if o.Delegate == nil {
		return 0, ErrToolUnavailable
	}

	return o.Delegate.CommitCount(ctx) //nolint:wrapcheck // delegate errors are already classified
}

// ShortHash returns the pinned hash when set, else asks the delegate.
func (o Override) ShortHash(ctx context.Context) (string, error) {
	if o.Hash != nil {
		return *o.Hash, nil
	}

	if o.Delegate == nil {
		return "", ErrToolUnavailable
	}

	return o.Delegate.ShortHash(ctx) //nolint:wrapcheck // delegate errors are already classified
}

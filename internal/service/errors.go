package service

import "errors"

// Engine error kinds. Controllers match these with errors.Is and map them to
// HTTP statuses; services wrap them with operation context via fmt.Errorf %w.
var (
	// ErrAlreadyAttempted: the student already has an attempt on this
	// snapshot and the snapshot does not allow re-attempts.
	ErrAlreadyAttempted = errors.New("already attempted")

	// ErrInvalidState: the operation is not valid in the attempt's current
	// lifecycle state.
	ErrInvalidState = errors.New("invalid attempt state")

	// ErrSectionLocked: the section was finalized by navigation, expiry or
	// submission and no longer accepts answers or visits.
	ErrSectionLocked = errors.New("section locked")

	// ErrUnknownQuestion: the question is not part of the attempt's
	// interface snapshot.
	ErrUnknownQuestion = errors.New("unknown question")

	// ErrAttemptClosed: mutation attempted after submission.
	ErrAttemptClosed = errors.New("attempt closed")

	// ErrNotPermitted: pause/resume or re-attempt disallowed by the
	// interface snapshot's policy.
	ErrNotPermitted = errors.New("not permitted by interface policy")

	// ErrInvalidDefinition: an authoring payload that passed binding but
	// fails semantic validation (dangling keys, duplicated questions,
	// non-positive limits).
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrNotFound: unknown attempt, snapshot or question identifier.
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps gateway failures. Never swallowed: the failing
	// operation's in-memory state is left untouched so the caller can retry.
	ErrPersistence = errors.New("persistence failure")
)

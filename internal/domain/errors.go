package domain

import "errors"

// Common domain errors that can occur during annotation operations.
var (
	// ErrEmptyText indicates that a record has no text to judge.
	ErrEmptyText = errors.New("record text is empty")

	// ErrNoRecords indicates that a batch contained no records.
	ErrNoRecords = errors.New("no records to process")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

package errors

import "errors"

var (
	ErrCredentialsMissing = errors.New("aws credentials not found")
	ErrCompileFailed      = errors.New("compilation failed")
	ErrNothingToArchive   = errors.New("nothing to archive: no directories found in build output")
	ErrEmptyArchive       = errors.New("archive is empty")
	ErrNoTargets          = errors.New("no target functions configured")
	ErrUnknownTarget      = errors.New("unknown target")
)

package auditor

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("auditor: no store configured")
	ErrStoreClosed = errors.New("auditor: store closed")

	// Not found errors.
	ErrExecutionNotFound  = errors.New("auditor: execution not found")
	ErrDefinitionNotFound = errors.New("auditor: definition not found")
	ErrStateNotFound      = errors.New("auditor: state not found")
	ErrTaskNotFound       = errors.New("auditor: task not registered")

	// Conflict errors.
	ErrExecutionExists  = errors.New("auditor: execution already exists")
	ErrDefinitionExists = errors.New("auditor: definition already registered")

	// State errors.
	ErrInvalidDefinition = errors.New("auditor: invalid definition")
	ErrExecutionTimeout  = errors.New("auditor: execution timed out")
)

package tool

import "github.com/flowgrid-ai/flowgrid/internal/types"

// Capability error codes
const (
	ErrCapabilityNotFound          types.ErrorCode = "CAPABILITY_NOT_FOUND"
	ErrCapabilityAlreadyExists     types.ErrorCode = "CAPABILITY_ALREADY_EXISTS"
	ErrCapabilityInvalidDefinition types.ErrorCode = "CAPABILITY_INVALID_DEFINITION"
	ErrCapabilityInvalidInput      types.ErrorCode = "CAPABILITY_INVALID_INPUT"
	ErrCapabilityInvalidOutput     types.ErrorCode = "CAPABILITY_INVALID_OUTPUT"
	ErrCapabilityExecutionFailed   types.ErrorCode = "CAPABILITY_EXECUTION_FAILED"
)

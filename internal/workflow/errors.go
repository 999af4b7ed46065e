package workflow

import "github.com/flowgrid-ai/flowgrid/internal/types"

// Workflow error codes
const (
	ErrGraphValidationFailed types.ErrorCode = "GRAPH_VALIDATION_FAILED"
	ErrGraphNotFound         types.ErrorCode = "GRAPH_NOT_FOUND"
	ErrGraphAlreadyExists    types.ErrorCode = "GRAPH_ALREADY_EXISTS"
	ErrNodeExecutionFailed   types.ErrorCode = "NODE_EXECUTION_FAILED"
	ErrRunFailed             types.ErrorCode = "RUN_FAILED"
	ErrRunCancelled          types.ErrorCode = "RUN_CANCELLED"
)

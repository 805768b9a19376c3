package domain

import "errors"

// ErrWorkflowNotFound is returned when a workflow ID cannot be found in the store.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrNodeNotFound is returned when a node ID is not part of the workflow.
var ErrNodeNotFound = errors.New("node not found")

var (
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrInvalidTrigger  = errors.New("invalid trigger")
	ErrEmptyLabel      = errors.New("label must not be empty")
	ErrEmptyName       = errors.New("name must not be empty")
)

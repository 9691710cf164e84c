package models

import "github.com/dyike/CortexAdvisor/consts"

// RequestState tracks the lifecycle of a session's remote call.
type RequestState int

const (
	StateIdle RequestState = iota
	StatePending
	StateSucceeded
	StateFailed
)

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return consts.State_Idle
	case StatePending:
		return consts.State_Pending
	case StateSucceeded:
		return consts.State_Succeeded
	case StateFailed:
		return consts.State_Failed
	default:
		return "unknown"
	}
}

// IsPending reports whether a remote call is outstanding.
func (s RequestState) IsPending() bool {
	return s == StatePending
}

// IsSettled reports whether the last request finished, successfully or not.
func (s RequestState) IsSettled() bool {
	return s == StateSucceeded || s == StateFailed
}

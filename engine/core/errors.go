package core

import (
	"errors"
)

var (
	ErrNotStarted          = errors.New("frame state machine not started")
	ErrAlreadyStarted      = errors.New("frame state machine already started")
	ErrJobInFlight         = errors.New("render job already in flight")
	ErrFenceTimeout        = errors.New("fence wait timed out")
	ErrInvalidDelta        = errors.New("buffer distribution delta out of range")
	ErrUnknownStrategy     = errors.New("unknown buffer distribution strategy")
	ErrSlotOutOfRange      = errors.New("thread slot index out of range")
	ErrInsufficientBuffers = errors.New("thread slot has no command buffer left for object")
	ErrPoolClosed          = errors.New("worker pool is shut down")
	ErrIncompleteRollback  = errors.New("command buffer rollback incomplete")
)

package queue

import "errors"

var (
	ErrAlreadyQueued    = errors.New("video already queued in room")
	ErrItemNotFound     = errors.New("queue item not found")
	ErrSnapshotNotFound = errors.New("room state snapshot not found")
)

package domain

import "errors"

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrTerminal           = errors.New("video is in a terminal state")
	ErrProgressRegression = errors.New("progress regression")
	ErrIncomplete         = errors.New("completed video requires progress 100 and a verdict")
)

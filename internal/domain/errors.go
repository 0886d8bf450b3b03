package domain

import "errors"

var (
	ErrEmptyObjective            = errors.New("objective is empty")
	ErrConflictingRouteOverrides = errors.New("force-browser and disable-browser cannot be combined")
	ErrInvalidThreshold          = errors.New("browser confidence threshold must be within [0,1]")
	ErrModelNotRecognized        = errors.New("model not recognized")
	ErrPlanningFailed            = errors.New("action planning failed")
	ErrUnknownOperation          = errors.New("unknown operation")
	ErrMaxIterations             = errors.New("maximum loop iterations exceeded")
	ErrBrowserAutomation         = errors.New("browser automation failed")
	ErrClassifierUnavailable     = errors.New("classifier unavailable")
	ErrRunNotFound               = errors.New("run not found")
)

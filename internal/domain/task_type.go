package domain

import (
	"fmt"
	"strings"
)

type TaskType string

const (
	TaskTypeBrowser    TaskType = "browser"
	TaskTypeDesktop    TaskType = "desktop"
	TaskTypeMixed      TaskType = "mixed"
	TaskTypeSequential TaskType = "sequential"
	TaskTypeAmbiguous  TaskType = "ambiguous"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeBrowser, TaskTypeDesktop, TaskTypeMixed, TaskTypeSequential, TaskTypeAmbiguous:
		return true
	default:
		return false
	}
}

func (t TaskType) String() string {
	return string(t)
}

func ParseTaskType(raw string) (TaskType, error) {
	t := TaskType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown task type %q", raw)
	}

	return t, nil
}

// Executor is the component that owns a (sub)task while it runs.
type Executor string

const (
	ExecutorBrowser Executor = "browser"
	ExecutorDesktop Executor = "desktop"
)

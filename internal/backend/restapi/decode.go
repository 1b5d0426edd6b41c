package restapi

import (
	"bytes"
	"encoding/json"
	"errors"

	"tasksync/internal/service"
)

// listShape tags the forms a list response can take.
type listShape int

const (
	shapeEmpty    listShape = iota // empty body, null, scalar, or object without a tasks array
	shapeArray                     // [task, ...]
	shapeEnvelope                  // {"tasks": [task, ...]}
)

// classifyList determines the shape of a list response and returns the
// raw task array for the array and envelope shapes.
func classifyList(raw []byte) (listShape, json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return shapeEmpty, nil, nil
	}
	if !json.Valid(raw) {
		return shapeEmpty, nil, errors.New("invalid JSON in list response")
	}

	switch raw[0] {
	case '[':
		return shapeArray, raw, nil
	case '{':
		var envelope struct {
			Tasks json.RawMessage `json:"tasks"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return shapeEmpty, nil, err
		}
		tasks := bytes.TrimSpace(envelope.Tasks)
		if len(tasks) > 0 && tasks[0] == '[' {
			return shapeEnvelope, tasks, nil
		}
	}
	return shapeEmpty, nil, nil
}

// decodeTaskList normalises every accepted list shape to a slice of tasks.
// The result is never nil.
func decodeTaskList(raw []byte) ([]service.Task, error) {
	shape, array, err := classifyList(raw)
	if err != nil {
		return nil, err
	}
	if shape == shapeEmpty {
		return []service.Task{}, nil
	}

	tasks := []service.Task{}
	if err := json.Unmarshal(array, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

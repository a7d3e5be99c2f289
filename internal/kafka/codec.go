package kafka

import (
	"fmt"

	"syslog-relay/internal/model"

	"github.com/fxamacker/cbor/v2"
)

// EncodeTask serializes a task for the action topic.
func EncodeTask(task model.ActionTask) ([]byte, error) {
	data, err := cbor.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode action task: %w", err)
	}
	return data, nil
}

// DecodeTask parses a message value written by EncodeTask.
func DecodeTask(data []byte) (*model.ActionTask, error) {
	var task model.ActionTask
	if err := cbor.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode action task: %w", err)
	}
	return &task, nil
}

func taskKey(task model.ActionTask) []byte {
	action := task.Event.FirstAction()
	if action == nil {
		return nil
	}
	if action.SelectedOption != nil && action.SelectedOption.Value != "" {
		return []byte(action.SelectedOption.Value)
	}
	return []byte(action.Value)
}

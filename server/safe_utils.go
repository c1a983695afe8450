package server

import (
	"fmt"
)

// Helper functions to safely extract values from Socket.IO arguments without panicking

func getString(val any) (string, error) {
	if v, ok := val.(string); ok {
		return v, nil
	}
	return "", fmt.Errorf("expected string, got %T", val)
}

func getMap(val any) (map[string]any, error) {
	if v, ok := val.(map[string]any); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected map[string]any, got %T", val)
}

// getArgAsMap safely gets the argument at index i as a map
func getArgAsMap(args []any, index int) (map[string]any, error) {
	if index >= len(args) {
		return nil, fmt.Errorf("argument index %d out of range", index)
	}
	return getMap(args[index])
}

// getCallback safely gets a callback function from the arguments (usually the last one)
func getCallback(args []any) func([]any, error) {
	if len(args) > 0 {
		if cb, ok := args[len(args)-1].(func([]any, error)); ok {
			return cb
		}
	}
	return nil
}

// safeMapGetString safely gets a value from a map as string
func safeMapGetString(m map[string]any, key string) string {
	val, ok := m[key]
	if !ok {
		return ""
	}
	s, err := getString(val)
	if err != nil {
		return ""
	}
	return s
}

// reply acks args with a single payload when the client asked for one
func reply(args []any, payload map[string]any) {
	if ack := getCallback(args); ack != nil {
		ack([]any{payload}, nil)
	}
}

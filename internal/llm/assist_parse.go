package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DeviceCommand is one command the assistant wants dispatched.
type DeviceCommand struct {
	DeviceID string                 `json:"device_id"`
	Command  string                 `json:"command"`
	Args     map[string]interface{} `json:"args,omitempty"`
}

// AssistantReply is the validated structure of the assistant's output.
type AssistantReply struct {
	Reply    string          `json:"reply"`
	Commands []DeviceCommand `json:"device_commands,omitempty"`
}

// assistantWrapper tolerates device_commands arriving as either a list
// or a single object, which smaller models produce now and then.
type assistantWrapper struct {
	Reply          string          `json:"reply"`
	DeviceCommands json.RawMessage `json:"device_commands"`
}

// ParseAssistantJSON parses and validates raw LLM output.
func ParseAssistantJSON(raw string) (*AssistantReply, error) {
	// Strip markdown code fences if present
	cleaned := stripCodeFences(raw)

	var wrapper assistantWrapper
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err != nil {
		return nil, fmt.Errorf("invalid JSON from LLM: %w", err)
	}

	if strings.TrimSpace(wrapper.Reply) == "" {
		return nil, fmt.Errorf("assistant output has empty reply")
	}

	out := &AssistantReply{Reply: wrapper.Reply}
	if len(wrapper.DeviceCommands) == 0 || string(wrapper.DeviceCommands) == "null" {
		return out, nil
	}

	var cmds []DeviceCommand
	if err := json.Unmarshal(wrapper.DeviceCommands, &cmds); err != nil {
		// Accept a bare object as a one-command list.
		var single DeviceCommand
		if err2 := json.Unmarshal(wrapper.DeviceCommands, &single); err2 != nil {
			return nil, fmt.Errorf("invalid device_commands from LLM: %w", err)
		}
		cmds = []DeviceCommand{single}
	}

	for i, c := range cmds {
		if strings.TrimSpace(c.DeviceID) == "" {
			return nil, fmt.Errorf("device_commands[%d] has empty device_id", i)
		}
		if strings.TrimSpace(c.Command) == "" {
			return nil, fmt.Errorf("device_commands[%d] (%s) has empty command", i, c.DeviceID)
		}
	}

	out.Commands = cmds
	return out, nil
}

// stripCodeFences removes surrounding markdown code fences from LLM output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	// Strip ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		// Find end of first line (the opening fence)
		idx := strings.Index(s, "\n")
		if idx >= 0 {
			s = s[idx+1:]
		}
		// Strip trailing fence
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	return s
}

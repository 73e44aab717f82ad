package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse errors. Callers treat these as ParseError: the message is logged,
// discarded, and never counts as a heartbeat.
var (
	ErrEmptyCommand = errors.New("empty command")
	ErrInvalidValue = errors.New("invalid command value")
)

// Parse translates raw command text into a Command. The grammar is
// "COMMAND" or "COMMAND:VALUE" with a base-10 integer value; input is
// upper-cased and trimmed first. Movement and SPEED commands without a
// value resolve to defaultSpeed. Legacy single-character commands
// (F/B/L/R/S) always use the default speed and ignore any value.
//
// Unrecognized tokens parse to ActionUnknown with a nil error: the message
// was well-formed, the action just isn't known. Parse is a pure function
// with no shared state.
func Parse(raw string, defaultSpeed int) (Command, error) {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "" {
		return Command{}, ErrEmptyCommand
	}

	token := text
	value := defaultSpeed
	hasValue := false

	if idx := strings.Index(text, ":"); idx >= 0 {
		token = text[:idx]
		parsed, err := strconv.Atoi(strings.TrimSpace(text[idx+1:]))
		if err != nil {
			return Command{}, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
		}
		value = parsed
		hasValue = true
	}

	cmd := Command{Value: value, HasValue: hasValue, Raw: text}

	switch token {
	case "START_FORWARD", "FORWARD":
		cmd.Action = ActionStartForward
	case "START_BACKWARD", "BACKWARD":
		cmd.Action = ActionStartBackward
	case "START_LEFT", "LEFT":
		cmd.Action = ActionStartLeft
	case "START_RIGHT", "RIGHT":
		cmd.Action = ActionStartRight
	case "STOP":
		cmd.Action = ActionStop
		cmd.HasValue = false
	case "SPEED":
		cmd.Action = ActionSetSpeed
	case "STATUS":
		cmd.Action = ActionStatusRequest
		cmd.HasValue = false
	case "EMERGENCY_STOP", "E_STOP":
		cmd.Action = ActionEmergencyStop
		cmd.HasValue = false

	// Legacy single-character commands for backward compatibility.
	case "F":
		cmd.Action = ActionStartForward
		cmd.Value = defaultSpeed
		cmd.HasValue = false
	case "B":
		cmd.Action = ActionStartBackward
		cmd.Value = defaultSpeed
		cmd.HasValue = false
	case "L":
		cmd.Action = ActionStartLeft
		cmd.Value = defaultSpeed
		cmd.HasValue = false
	case "R":
		cmd.Action = ActionStartRight
		cmd.Value = defaultSpeed
		cmd.HasValue = false
	case "S":
		cmd.Action = ActionStop
		cmd.HasValue = false

	default:
		cmd.Action = ActionUnknown
		cmd.HasValue = false
	}

	return cmd, nil
}

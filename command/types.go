package command

// Action identifies what an inbound command asks the controller to do.
type Action int

const (
	ActionUnknown Action = iota
	ActionStartForward
	ActionStartBackward
	ActionStartLeft
	ActionStartRight
	ActionStop
	ActionSetSpeed
	ActionStatusRequest
	ActionEmergencyStop
)

var actionNames = map[Action]string{
	ActionUnknown:       "UNKNOWN",
	ActionStartForward:  "START_FORWARD",
	ActionStartBackward: "START_BACKWARD",
	ActionStartLeft:     "START_LEFT",
	ActionStartRight:    "START_RIGHT",
	ActionStop:          "STOP",
	ActionSetSpeed:      "SET_SPEED",
	ActionStatusRequest: "STATUS_REQUEST",
	ActionEmergencyStop: "EMERGENCY_STOP",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "UNKNOWN"
}

// Command is the parsed form of one inbound message. It is created per
// message and consumed immediately; nothing retains it.
type Command struct {
	Action   Action
	Value    int
	HasValue bool
	Raw      string
}

package recorder

type State int

const (
	Idle State = iota
	Recording
	Finalizing
	Ready
	Uploading
	Done
	Error
)

var stateNames = map[State]string{
	Idle:       "idle",
	Recording:  "recording",
	Finalizing: "finalizing",
	Ready:      "ready",
	Uploading:  "uploading",
	Done:       "done",
	Error:      "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

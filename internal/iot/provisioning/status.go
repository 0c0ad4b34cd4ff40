package provisioning

// OperationStatus is the state of a registration operation.
type OperationStatus uint8

// Operation states. Assigned, Failed and Disabled are terminal.
const (
	OperationStatusUnassigned OperationStatus = iota
	OperationStatusAssigning
	OperationStatusAssigned
	OperationStatusFailed
	OperationStatusDisabled
)

// Wire names of the operation states.
const (
	stateUnassigned = "unassigned"
	stateAssigning  = "assigning"
	stateAssigned   = "assigned"
	stateFailed     = "failed"
	stateDisabled   = "disabled"
)

// String returns the wire name of the state.
func (s OperationStatus) String() string {
	switch s {
	case OperationStatusUnassigned:
		return stateUnassigned
	case OperationStatusAssigning:
		return stateAssigning
	case OperationStatusAssigned:
		return stateAssigned
	case OperationStatusFailed:
		return stateFailed
	case OperationStatusDisabled:
		return stateDisabled
	default:
		return "unknown"
	}
}

// IsTerminal reports whether polling should stop.
func (s OperationStatus) IsTerminal() bool {
	switch s {
	case OperationStatusAssigned, OperationStatusFailed, OperationStatusDisabled:
		return true
	default:
		return false
	}
}

// parseState maps a wire state to an OperationStatus.
func parseState(b []byte) (OperationStatus, bool) {
	switch string(b) {
	case stateUnassigned:
		return OperationStatusUnassigned, true
	case stateAssigning:
		return OperationStatusAssigning, true
	case stateAssigned:
		return OperationStatusAssigned, true
	case stateFailed:
		return OperationStatusFailed, true
	case stateDisabled:
		return OperationStatusDisabled, true
	default:
		return 0, false
	}
}

// ParseOperationStatus maps a wire state name back to its OperationStatus.
func ParseOperationStatus(name string) (OperationStatus, bool) {
	return parseState([]byte(name))
}

// Classify returns the operation state of resp.
//
// A response with a state field maps directly to that state. A service error
// (failure status without an operation) is Failed. Anything else, including
// a zero response, is Unassigned.
func Classify(resp *RegisterResponse) OperationStatus {
	if resp == nil {
		return OperationStatusUnassigned
	}
	if len(resp.State) > 0 {
		if s, ok := parseState(resp.State); ok {
			return s
		}
		return OperationStatusUnassigned
	}
	if resp.Status.Failed() {
		return OperationStatusFailed
	}
	return OperationStatusUnassigned
}

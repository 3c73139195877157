package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrVersionMismatch = "E_VERSION_MISMATCH"

	// Study routing/state.
	ErrStudyNotFound = "E_STUDY_NOT_FOUND"
	ErrStudyBusy     = "E_STUDY_BUSY"
	ErrNoVolume      = "E_NO_VOLUME"

	// Edit layer.
	ErrBadLabel      = "E_BAD_LABEL"
	ErrBadRadius     = "E_BAD_RADIUS"
	ErrBadTool       = "E_BAD_TOOL"
	ErrOutOfBounds   = "E_OUT_OF_BOUNDS"
	ErrDimMismatch   = "E_DIM_MISMATCH"
	ErrNothingToUndo = "E_NOTHING_TO_UNDO"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrVersionMismatch: {},
	ErrStudyNotFound:   {},
	ErrStudyBusy:       {},
	ErrNoVolume:        {},
	ErrBadLabel:        {},
	ErrBadRadius:       {},
	ErrBadTool:         {},
	ErrOutOfBounds:     {},
	ErrDimMismatch:     {},
	ErrNothingToUndo:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

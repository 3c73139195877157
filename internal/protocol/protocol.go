package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// client -> server
	TypeHello          = "HELLO"
	TypePointer        = "POINTER"
	TypeSetLabel       = "SET_LABEL"
	TypeSetTool        = "SET_TOOL"
	TypeSetRadius      = "SET_RADIUS"
	TypeSetOrientation = "SET_ORIENTATION"
	TypeSetView        = "SET_VIEW"
	TypeSetWindow      = "SET_WINDOW"
	TypeUndo           = "UNDO"
	TypeReset          = "RESET"
	TypeSave           = "SAVE"

	// server -> client
	TypeWelcome = "WELCOME"
	TypeMask    = "MASK"
	TypeState   = "STATE"
	TypeAck     = "ACK"
)

// Pointer phases.
const (
	PhaseBegin = "BEGIN"
	PhaseMove  = "MOVE"
	PhaseEnd   = "END"
	PhaseLeave = "LEAVE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

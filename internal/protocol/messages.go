package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ClientName      string     `json:"client_name"`
	StudyID         string     `json:"study_id"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	StudyID         string       `json:"study_id"`
	Dims            [3]int       `json:"dims"`
	SpacingMM       [3]float64   `json:"spacing_mm"`
	Labels          []LabelInfo  `json:"labels"`
	Settings        EditSettings `json:"settings"`
}

type LabelInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"` // "#rrggbb"
}

// EditSettings is the mutable tool state echoed in WELCOME and STATE.
type EditSettings struct {
	Label       int    `json:"label"`
	Tool        string `json:"tool"`
	Radius      int    `json:"radius"`
	MaxRadius   int    `json:"max_radius"`
	Orientation string `json:"orientation"`
	View        string `json:"view"`
	Brightness  int    `json:"brightness"`
	Contrast    int    `json:"contrast"`
}

// POINTER (client -> server): one sample of a brush gesture. Voxel holds
// volume coordinates already resolved by the client renderer.
type PointerMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Phase           string `json:"phase"`
	Voxel           [3]int `json:"voxel"`
	Seq             uint64 `json:"seq,omitempty"`
}

// SET_LABEL / SET_TOOL / SET_RADIUS / SET_ORIENTATION / SET_VIEW / SET_WINDOW
// share one shape; only the field matching the type is read.
type SettingMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Label           int    `json:"label,omitempty"`
	Tool            string `json:"tool,omitempty"`
	Radius          int    `json:"radius,omitempty"`
	Orientation     string `json:"orientation,omitempty"`
	View            string `json:"view,omitempty"`
	Brightness      int    `json:"brightness,omitempty"`
	Contrast        int    `json:"contrast,omitempty"`
}

// UNDO / RESET / SAVE (client -> server)
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
}

// MASK (server -> client): the full label payload, RLE-compressed.
type MaskMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Revision        uint64 `json:"revision"`
	Encoding        string `json:"encoding"` // "RLE"
	Data            string `json:"data"`
}

// STATE (server -> client): settings plus session counters, sent after any
// change that does not alter the mask payload itself.
type StateMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Settings        EditSettings `json:"settings"`
	UndoDepth       int          `json:"undo_depth"`
	StrokeActive    bool         `json:"stroke_active"`
	Focus           *FocusInfo   `json:"focus,omitempty"`
}

// FocusInfo points every viewing plane at the last-edited voxel.
type FocusInfo struct {
	Voxel         [3]int     `json:"voxel"`
	AxialSlice    int        `json:"axial_slice"`    // along z
	CoronalSlice  int        `json:"coronal_slice"`  // along y
	SagittalSlice int        `json:"sagittal_slice"` // along x
	Fractions     [3]float64 `json:"fractions"`      // normalized x/y/z crosshair
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Revision        uint64 `json:"revision,omitempty"`
}

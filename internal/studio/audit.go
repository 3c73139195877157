package studio

import "time"

// EditEvent is one audit record of a mutating session operation.
type EditEvent struct {
	Time      time.Time `json:"time"`
	StudyID   string    `json:"study_id"`
	SessionID string    `json:"session_id,omitempty"`
	Op        string    `json:"op"` // STROKE, UNDO, RESET, SAVE, SETTING
	Tool      string    `json:"tool,omitempty"`
	Label     int       `json:"label,omitempty"`
	Radius    int       `json:"radius,omitempty"`
	Orient    string    `json:"orientation,omitempty"`
	Changed   int       `json:"changed,omitempty"`
	Revision  uint64    `json:"revision"`
	Detail    string    `json:"detail,omitempty"`
}

// AuditLogger receives edit events. Implementations must not block; the
// session path calls this synchronously.
type AuditLogger interface {
	LogEdit(EditEvent)
}

// NopAudit discards events.
type NopAudit struct{}

func (NopAudit) LogEdit(EditEvent) {}

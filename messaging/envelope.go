package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message types published on the operations topic.
const (
	TypeProcessStarted = "process_started"
	TypeProcessStopped = "process_stopped"
	TypeProcessExited  = "process_exited"
	TypeBuildComplete  = "build_complete"
	TypeConfigWritten  = "config_written"
	TypeTaskDispatched = "task_dispatched"
)

type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type ProcessEvent struct {
	Target string `json:"target"`
	PID    int    `json:"pid,omitempty"`
	Code   int    `json:"code"`
}

type BuildComplete struct {
	Package string `json:"package"`
	Code    int    `json:"code"`
}

type ConfigWritten struct {
	Filename string `json:"filename"`
	Action   string `json:"action"`
}

type TaskDispatched struct {
	Category    string `json:"category"`
	Destination string `json:"destination"`
}

// NewEnvelope creates an outbound envelope with a new UUID and timestamp.
func NewEnvelope(msgType, source string, payload any) *Envelope {
	return &Envelope{
		MsgType:   msgType,
		MsgID:     uuid.New().String(),
		Source:    source,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type rawEnvelope struct {
	MsgType   string          `json:"msg_type"`
	MsgID     string          `json:"msg_id"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// DecodeEnvelope unmarshals a raw message into an Envelope with the typed
// payload for its msg_type.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	env := &Envelope{
		MsgType:   raw.MsgType,
		MsgID:     raw.MsgID,
		Source:    raw.Source,
		Timestamp: raw.Timestamp,
	}

	var err error
	switch raw.MsgType {
	case TypeProcessStarted, TypeProcessStopped, TypeProcessExited:
		var p ProcessEvent
		err = json.Unmarshal(raw.Payload, &p)
		env.Payload = p
	case TypeBuildComplete:
		var p BuildComplete
		err = json.Unmarshal(raw.Payload, &p)
		env.Payload = p
	case TypeConfigWritten:
		var p ConfigWritten
		err = json.Unmarshal(raw.Payload, &p)
		env.Payload = p
	case TypeTaskDispatched:
		var p TaskDispatched
		err = json.Unmarshal(raw.Payload, &p)
		env.Payload = p
	default:
		return nil, fmt.Errorf("unknown msg_type: %s", raw.MsgType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", raw.MsgType, err)
	}
	return env, nil
}

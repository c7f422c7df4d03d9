package emitter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/orion-annotate/modules/controller"
	"github.com/e7canasta/orion-annotate/modules/progress"
)

// StatusPayload is the wire form of a controller status.
type StatusPayload struct {
	RunID     string    `json:"run_id"              msgpack:"run_id"`
	Input     string    `json:"input"               msgpack:"input"`
	Output    string    `json:"output"              msgpack:"output"`
	State     string    `json:"state"               msgpack:"state"`
	Percent   int       `json:"percent"             msgpack:"percent"`
	Fraction  float64   `json:"fraction"            msgpack:"fraction"`
	Processed int64     `json:"processed"           msgpack:"processed"`
	Total     int64     `json:"total"               msgpack:"total"`
	Message   string    `json:"message"             msgpack:"message"`
	Error     string    `json:"error,omitempty"     msgpack:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"           msgpack:"timestamp"`
}

// NewStatusPayload converts st to its wire form.
func NewStatusPayload(st controller.Status, now time.Time) StatusPayload {
	p := StatusPayload{
		RunID:     st.RunID,
		Input:     st.Input,
		Output:    st.Output,
		State:     st.State.String(),
		Percent:   progress.Percent(st.Fraction),
		Fraction:  st.Fraction,
		Processed: st.Processed,
		Total:     st.Total,
		Message:   st.Message,
		Timestamp: now.UTC(),
	}
	if st.Err != nil {
		p.Error = st.Err.Error()
	}
	return p
}

// Codec serializes payloads.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return "msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// CodecFor returns the codec registered under name ("json" or "msgpack").
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("emitter: unknown codec %q", name)
	}
}

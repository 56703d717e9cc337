package session

import "encoding/json"

// FlowState is the per-session record of an in-progress flow. A nil
// FlowState on a Context means no flow is active; completed and aborted
// flows are cleared from the session rather than stored.
type FlowState struct {
	FlowID string `json:"flow_id"`
	// FieldIndex is the field currently being asked. It is always a valid
	// index into the flow's field list, or equal to the field count when
	// the flow is complete pending finalization.
	FieldIndex int               `json:"field_index"`
	Answers    map[string]string `json:"answers"`
	// Retries counts consecutive failed validations for the current field.
	Retries int `json:"retries"`
}

// Context is everything the engine remembers about one session: the last
// recognized intent, the active flow if any, and small scratch data such
// as the lead-captured marker.
type Context struct {
	LastIntent string            `json:"last_intent,omitempty"`
	Flow       *FlowState        `json:"flow,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// NewContext returns an empty session context.
func NewContext() *Context {
	return &Context{Data: make(map[string]string)}
}

// GetData reads a scratch value, tolerating a nil map.
func (c *Context) GetData(key string) string {
	if c.Data == nil {
		return ""
	}
	return c.Data[key]
}

// SetData writes a scratch value, allocating the map on first use.
func (c *Context) SetData(key, value string) {
	if c.Data == nil {
		c.Data = make(map[string]string)
	}
	c.Data[key] = value
}

// Encode serializes the context to its storage blob. Both backends store
// contexts as opaque bytes so they stay interchangeable.
func (c *Context) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Decode deserializes a storage blob into a context.
func Decode(blob []byte) (*Context, error) {
	var c Context
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, err
	}
	if c.Data == nil {
		c.Data = make(map[string]string)
	}
	return &c, nil
}

package types

// Event is the wire form of a state transition notification. Attributes are
// flat string pairs so downstream consumers can index them without schema
// knowledge.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

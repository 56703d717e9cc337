package corpus

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Well-known intent identifiers the engine depends on.
const (
	IntentFallback    = "fallback"
	IntentHelp        = "help"
	IntentAffirmative = "affirmative"
	IntentProductInfo = "product_info"
)

// FieldType is the closed set of flow field types.
type FieldType string

const (
	FieldText           FieldType = "text"
	FieldNumber         FieldType = "number"
	FieldBoolean        FieldType = "boolean"
	FieldEmail          FieldType = "email"
	FieldSingleChoice   FieldType = "single_choice"
	FieldMultipleChoice FieldType = "multiple_choice"
	FieldDateTime       FieldType = "datetime"
)

var validFieldTypes = map[FieldType]bool{
	FieldText:           true,
	FieldNumber:         true,
	FieldBoolean:        true,
	FieldEmail:          true,
	FieldSingleChoice:   true,
	FieldMultipleChoice: true,
	FieldDateTime:       true,
}

// Intent is one entry in the intent catalogue: a named user purpose backed
// by example phrases and candidate responses.
type Intent struct {
	Name      string      `yaml:"-"`
	Patterns  []string    `yaml:"patterns"`
	Responses ResponseSet `yaml:"responses"`
	// Flow, when set, marks this intent as a flow trigger and names the
	// flow definition it starts.
	Flow string `yaml:"flow"`
}

// ResponseSet holds an intent's candidate responses: either a flat pool or
// pools keyed by a discriminator attribute (e.g. product type).
type ResponseSet struct {
	Pool  []string
	ByKey map[string][]string
}

// UnmarshalYAML accepts either a sequence of strings or a mapping of
// discriminator value to sequence, mirroring the two corpus shapes.
func (r *ResponseSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&r.Pool)
	case yaml.MappingNode:
		return node.Decode(&r.ByKey)
	default:
		return fmt.Errorf("responses must be a list or a keyed map, got yaml kind %d", node.Kind)
	}
}

// Empty reports whether the set contains no responses at all.
func (r ResponseSet) Empty() bool {
	if len(r.Pool) > 0 {
		return false
	}
	for _, pool := range r.ByKey {
		if len(pool) > 0 {
			return false
		}
	}
	return true
}

// FieldSpec describes one question in a flow: what to ask, what type of
// answer is acceptable, and how to validate it.
type FieldSpec struct {
	Name     string    `yaml:"name"`
	Prompt   string    `yaml:"prompt"`
	Type     FieldType `yaml:"type"`
	Required *bool     `yaml:"required"`
	Options  []string  `yaml:"options"`
	Pattern  string    `yaml:"pattern"`
	Min      *float64  `yaml:"min"`
	Max      *float64  `yaml:"max"`
}

// IsRequired reports the required flag, defaulting to true when unset.
func (f FieldSpec) IsRequired() bool {
	return f.Required == nil || *f.Required
}

// FlowDefinition is an ordered sequence of fields collected across turns,
// plus the message sent when the flow completes. Completion supports
// {field} placeholders filled from the accumulated answers.
type FlowDefinition struct {
	ID         string      `yaml:"-"`
	Fields     []FieldSpec `yaml:"fields"`
	Completion string      `yaml:"completion"`
}

// Corpus is the immutable intent catalogue and flow definitions, loaded
// once at startup and shared read-only across all sessions.
type Corpus struct {
	Intents     map[string]Intent
	Flows       map[string]FlowDefinition
	fingerprint string
}

// Fingerprint returns the SHA-256 content fingerprint of the source
// documents. Index artifacts are keyed by it.
func (c *Corpus) Fingerprint() string { return c.fingerprint }

// Intent looks up an intent by identifier.
func (c *Corpus) Intent(name string) (Intent, bool) {
	in, ok := c.Intents[name]
	return in, ok
}

// Flow looks up a flow definition by identifier.
func (c *Corpus) Flow(id string) (FlowDefinition, bool) {
	f, ok := c.Flows[id]
	return f, ok
}

// PatternCount returns the total number of patterns across all intents.
func (c *Corpus) PatternCount() int {
	n := 0
	for _, in := range c.Intents {
		n += len(in.Patterns)
	}
	return n
}

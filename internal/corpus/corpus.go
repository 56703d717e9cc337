// Package corpus loads the static intent catalogue and flow definitions
// from YAML documents. The corpus is read-only input to the index builder
// and the engine; it never changes after load.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// intentsDoc is the on-disk shape of an intent catalogue file.
type intentsDoc struct {
	Intents map[string]Intent `yaml:"intents"`
}

// flowsDoc is the on-disk shape of a flow definitions file.
type flowsDoc struct {
	Flows map[string]FlowDefinition `yaml:"flows"`
}

// Load reads intent files matching the given glob patterns plus the flow
// definitions file, merges them, validates the result, and computes the
// content fingerprint. Any malformed or missing document is a fatal error.
func Load(intentPatterns []string, flowsPath string) (*Corpus, error) {
	var files []string
	for _, pattern := range intentPatterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad corpus pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no intent files matched %v", intentPatterns)
	}
	sort.Strings(files)

	c := &Corpus{
		Intents: make(map[string]Intent),
		Flows:   make(map[string]FlowDefinition),
	}

	hash := sha256.New()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading intent file %s: %w", path, err)
		}
		hash.Write(data)

		var doc intentsDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing intent file %s: %w", path, err)
		}
		for name, in := range doc.Intents {
			if _, dup := c.Intents[name]; dup {
				return nil, fmt.Errorf("intent %q defined in more than one file", name)
			}
			in.Name = name
			c.Intents[name] = in
		}
	}

	if flowsPath != "" {
		data, err := os.ReadFile(flowsPath)
		if err != nil {
			return nil, fmt.Errorf("reading flows file %s: %w", flowsPath, err)
		}
		hash.Write(data)

		var doc flowsDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing flows file %s: %w", flowsPath, err)
		}
		for id, f := range doc.Flows {
			f.ID = id
			c.Flows[id] = f
		}
	}

	c.fingerprint = hex.EncodeToString(hash.Sum(nil))

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks the cross-references and field specs the engine relies on.
func (c *Corpus) validate() error {
	if _, ok := c.Intents[IntentFallback]; !ok {
		return fmt.Errorf("corpus must define the %q intent", IntentFallback)
	}

	for name, in := range c.Intents {
		if in.Responses.Empty() && in.Flow == "" {
			return fmt.Errorf("intent %q has no responses and no flow", name)
		}
		if in.Flow != "" {
			if _, ok := c.Flows[in.Flow]; !ok {
				return fmt.Errorf("intent %q references unknown flow %q", name, in.Flow)
			}
		}
	}

	for id, f := range c.Flows {
		if len(f.Fields) == 0 {
			return fmt.Errorf("flow %q has no fields", id)
		}
		seen := make(map[string]bool)
		for i, field := range f.Fields {
			if field.Name == "" {
				return fmt.Errorf("flow %q field %d has no name", id, i)
			}
			if seen[field.Name] {
				return fmt.Errorf("flow %q has duplicate field %q", id, field.Name)
			}
			seen[field.Name] = true
			if field.Prompt == "" {
				return fmt.Errorf("flow %q field %q has no prompt", id, field.Name)
			}
			if !validFieldTypes[field.Type] {
				return fmt.Errorf("flow %q field %q has invalid type %q", id, field.Name, field.Type)
			}
			switch field.Type {
			case FieldSingleChoice, FieldMultipleChoice:
				if len(field.Options) == 0 {
					return fmt.Errorf("flow %q field %q needs options", id, field.Name)
				}
			}
		}
	}
	return nil
}

// FlowTriggers returns intent name → flow id for every flow-trigger intent.
func (c *Corpus) FlowTriggers() map[string]string {
	triggers := make(map[string]string)
	for name, in := range c.Intents {
		if in.Flow != "" {
			triggers[name] = in.Flow
		}
	}
	return triggers
}

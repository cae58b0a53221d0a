package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// NodeRef points at a node either by id or by a resolved node object.
// It always resolves to an id.
type NodeRef struct {
	id   string
	node *Node
}

// RefID builds a reference from an id.
func RefID(id string) NodeRef { return NodeRef{id: id} }

// RefNode builds a resolved reference.
func RefNode(n *Node) NodeRef { return NodeRef{id: n.ID, node: n} }

// ID returns the referenced id.
func (r NodeRef) ID() string {
	if r.node != nil {
		return r.node.ID
	}
	return r.id
}

// Node returns the resolved node, or nil if the reference is unresolved.
func (r NodeRef) Node() *Node { return r.node }

// Resolved reports whether the reference carries a node object.
func (r NodeRef) Resolved() bool { return r.node != nil }

// MarshalJSON always writes the plain id.
func (r NodeRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID())
}

// UnmarshalJSON accepts either "id" or {"id": "..."}.
func (r *NodeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("node ref: %w", err)
		}
		*r = RefID(obj.ID)
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("node ref: %w", err)
	}
	*r = RefID(id)
	return nil
}

// UnmarshalYAML accepts either a scalar id or a mapping with an id key.
func (r *NodeRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*r = RefID(value.Value)
		return nil
	case yaml.MappingNode:
		var obj struct {
			ID string `yaml:"id"`
		}
		if err := value.Decode(&obj); err != nil {
			return fmt.Errorf("node ref: %w", err)
		}
		*r = RefID(obj.ID)
		return nil
	}
	return fmt.Errorf("node ref: unsupported yaml kind %d", value.Kind)
}

// MarshalYAML writes the plain id.
func (r NodeRef) MarshalYAML() (interface{}, error) {
	return r.ID(), nil
}

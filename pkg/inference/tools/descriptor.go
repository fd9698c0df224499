package tools

import (
	"encoding/json"
	"fmt"
)

// ToolDescriptor describes one tool offered by one backend. Descriptors are
// unique by (BackendName, ToolName).
type ToolDescriptor struct {
	BackendName string `json:"backend" yaml:"backend"`
	ToolName    string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	// InputSchema is the JSON Schema of the tool arguments, if the backend
	// published one.
	InputSchema json.RawMessage `json:"input_schema,omitempty" yaml:"-"`
}

// Key is the "<backend>/<tool>" identifier used for enablement settings.
func (d ToolDescriptor) Key() string {
	return fmt.Sprintf("%s/%s", d.BackendName, d.ToolName)
}

// FindDescriptor returns the first descriptor whose ToolName is name, in
// descriptor order.
func FindDescriptor(descriptors []ToolDescriptor, name string) (ToolDescriptor, bool) {
	for _, d := range descriptors {
		if d.ToolName == name {
			return d, true
		}
	}
	return ToolDescriptor{}, false
}

// Collision is a tool name exposed by more than one backend. Winner is the
// backend that FindDescriptor resolves to.
type Collision struct {
	ToolName string
	Winner   string
	Shadowed []string
}

func (c Collision) String() string {
	return fmt.Sprintf("tool %q is offered by %q and shadowed on %v", c.ToolName, c.Winner, c.Shadowed)
}

// Collisions lists the tool names that appear more than once, in order of
// first appearance.
func Collisions(descriptors []ToolDescriptor) []Collision {
	index := map[string]int{}
	var ret []Collision
	seen := map[string]string{}
	for _, d := range descriptors {
		winner, ok := seen[d.ToolName]
		if !ok {
			seen[d.ToolName] = d.BackendName
			continue
		}
		i, ok := index[d.ToolName]
		if !ok {
			ret = append(ret, Collision{ToolName: d.ToolName, Winner: winner})
			i = len(ret) - 1
			index[d.ToolName] = i
		}
		ret[i].Shadowed = append(ret[i].Shadowed, d.BackendName)
	}
	return ret
}

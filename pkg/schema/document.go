package schema

import "encoding/json"

// RenderDocument is the JSON/YAML-serializable render request.
// Callers provide it via `stencil render` or the stencil.render MCP tool.
type RenderDocument struct {
	Name     string         `json:"name,omitempty"`
	Template []SegmentDoc   `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
	Locale   string         `json:"locale,omitempty"`   // BCP 47 tag, overrides the engine default
	Timezone string         `json:"timezone,omitempty"` // IANA zone, overrides the engine default
	Strict   *bool          `json:"strict,omitempty"`   // overrides the engine strict-variables flag
}

// SegmentDoc is one piece of template output: raw text or a printed node.
// Exactly one field is set.
type SegmentDoc struct {
	Text  *string  `json:"text,omitempty"`
	Print *NodeDoc `json:"print,omitempty"`
}

// NodeDoc is an expression node. Exactly one of the node fields is set;
// Line and Col carry the source position when the producer knows it.
type NodeDoc struct {
	Literal json.RawMessage `json:"literal,omitempty"` // any JSON scalar or null
	Var     string          `json:"var,omitempty"`     // dotted path, e.g. "user.name"
	Filter  *FilterDoc      `json:"filter,omitempty"`
	Call    *CallDoc        `json:"call,omitempty"`
	Test    *TestDoc        `json:"test,omitempty"`
	List    []NodeDoc       `json:"list,omitempty"`
	Map     []EntryDoc      `json:"map,omitempty"`
	Let     *LetDoc         `json:"let,omitempty"`

	Line int `json:"line,omitempty"`
	Col  int `json:"col,omitempty"`
}

// FilterDoc applies a filter to a target.
type FilterDoc struct {
	Name   string   `json:"name"`
	Target *NodeDoc `json:"target"`
	Args   []ArgDoc `json:"args,omitempty"`
}

// CallDoc invokes a function.
type CallDoc struct {
	Name string   `json:"name"`
	Args []ArgDoc `json:"args,omitempty"`
}

// TestDoc applies a test to a target, optionally negated ("is not").
type TestDoc struct {
	Name    string   `json:"name"`
	Target  *NodeDoc `json:"target"`
	Args    []ArgDoc `json:"args,omitempty"`
	Negated bool     `json:"negated,omitempty"`
}

// ArgDoc is one call-site argument. An empty Name marks a positional argument.
type ArgDoc struct {
	Name  string  `json:"name,omitempty"`
	Value NodeDoc `json:"value"`
}

// EntryDoc is one key of a map literal or one binding of a let node.
type EntryDoc struct {
	Key   string  `json:"key"`
	Value NodeDoc `json:"value"`
}

// LetDoc binds names in a new scope and evaluates Body inside it.
type LetDoc struct {
	Bindings []EntryDoc `json:"bindings"`
	Body     *NodeDoc   `json:"body"`
}

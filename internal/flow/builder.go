package flow

// Builder constructs a Flow programmatically. Graph config parsing is out
// of scope for this engine; callers that read a config document build a
// Flow from it using this builder (or construct Flow values directly).
type Builder struct {
	name        string
	start       string
	nodes       map[string]Node
	transitions map[string][]Transition
}

// NewBuilder starts a Flow named name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:        name,
		nodes:       make(map[string]Node),
		transitions: make(map[string][]Transition),
	}
}

// AddNode registers a node under name with the given kind.
func (b *Builder) AddNode(name string, kind NodeKind) *Builder {
	b.nodes[name] = Node{Name: name, Kind: kind}
	return b
}

// AddNodeWithMetadata registers a node carrying opaque metadata.
func (b *Builder) AddNodeWithMetadata(name string, kind NodeKind, metadata map[string]any) *Builder {
	b.nodes[name] = Node{Name: name, Kind: kind, Metadata: metadata}
	return b
}

// SetStart marks name as the flow's entry node.
func (b *Builder) SetStart(name string) *Builder {
	b.start = name
	return b
}

// Connect adds an unconditional transition from -> to.
func (b *Builder) Connect(from, to string) *Builder {
	return b.ConnectNamed(from, to, "")
}

// ConnectNamed adds an unconditional, labeled transition.
func (b *Builder) ConnectNamed(from, to, label string) *Builder {
	b.transitions[from] = append(b.transitions[from], Transition{To: to, Label: label})
	return b
}

// ConnectConditional adds a transition guarded by a predicate.
func (b *Builder) ConnectConditional(from, to string, condition Predicate) *Builder {
	return b.ConnectConditionalNamed(from, to, "", condition)
}

// ConnectConditionalNamed adds a labeled, guarded transition.
func (b *Builder) ConnectConditionalNamed(from, to, label string, condition Predicate) *Builder {
	b.transitions[from] = append(b.transitions[from], Transition{To: to, Condition: condition, Label: label})
	return b
}

// Build finalizes the Flow. If no start node was set, the first node added
// (in insertion order is not guaranteed by a map; callers should call
// SetStart explicitly) is used as a fallback.
func (b *Builder) Build() Flow {
	start := b.start
	if start == "" {
		for name := range b.nodes {
			start = name
			break
		}
	}
	return Flow{
		Name:        b.name,
		Start:       start,
		nodes:       b.nodes,
		transitions: b.transitions,
	}
}

package dom

// MutationType classifies a MutationRecord.
type MutationType string

const (
	// MutationChildList records nodes being added to or removed from a parent.
	MutationChildList MutationType = "childList"

	// MutationAttributes records an attribute change.
	MutationAttributes MutationType = "attributes"

	// MutationCharacterData records a text node change.
	MutationCharacterData MutationType = "characterData"
)

// MutationRecord describes one low-level change to the tree.
type MutationRecord struct {
	Type MutationType `json:"type"`

	// Target is the tag name of the node the change happened on.
	Target string `json:"target,omitempty"`

	// Attribute is set for attribute records.
	Attribute string `json:"attribute,omitempty"`

	// Added and Removed count the nodes of a childList record.
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// IsStructuralAddition reports whether the record added at least one node.
func (r MutationRecord) IsStructuralAddition() bool {
	return r.Type == MutationChildList && r.Added > 0
}

// MutationBatch is one delivery of coalesced records. It carries no identity
// and is discarded once the callback returns.
type MutationBatch []MutationRecord

// Observable delivers mutation batches.
//
// Implementations deliver batches serially: fn is never invoked while a
// previous invocation is still running. Observe returns a stop function that
// ends the subscription; calling it more than once is safe.
type Observable interface {
	Observe(fn func(MutationBatch)) (stop func())
}

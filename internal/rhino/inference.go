package rhino

import "sort"

// Inference is the engine's decision for one finalized utterance.
type Inference struct {
	// IsUnderstood reports whether the utterance matched the context.
	IsUnderstood bool
	// Intent is empty unless IsUnderstood.
	Intent string
	// Slots maps slot names to values. Never nil; empty unless IsUnderstood.
	Slots map[string]string
}

// SlotNames returns the slot names in sorted order.
func (i Inference) SlotNames() []string {
	names := make([]string, 0, len(i.Slots))
	for name := range i.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package closemap

// policy is the ambient close policy in effect at a traversal position.
// It is threaded down the recursive walk as a plain value so that concurrent
// closes of independent containers never share state.
type policy struct {
	ignore  bool
	swallow bool
	handler func(error)
}

// rootPolicy is the default in effect at the root: process everything,
// fail fast, no handler.
var rootPolicy policy

// entryLookup reads reserved-key entries out of a container-like node.
// nil for nodes that are not mappings.
type entryLookup func(key string) (any, bool)

// resolve computes the effective policy for a node: the inherited ambient
// policy, overridden by the node's annotations, overridden in turn by
// reserved-key entries when the node is itself a mapping.
func (p policy) resolve(ann Annotations, entry entryLookup) policy {
	eff := p
	if v, ok := TagIgnore.Get(ann); ok {
		eff.ignore = v
	}
	if v, ok := TagSwallow.Get(ann); ok {
		eff.swallow = v
	}
	if h, ok := TagExHandler.Get(ann); ok {
		eff.handler = h
	}
	if entry == nil {
		return eff
	}
	if v, ok := entry(TagIgnore.Key()); ok {
		if b, ok := v.(bool); ok {
			eff.ignore = b
		}
	}
	if v, ok := entry(TagSwallow.Key()); ok {
		if b, ok := v.(bool); ok {
			eff.swallow = b
		}
	}
	if v, ok := entry(TagExHandler.Key()); ok {
		if h, ok := v.(func(error)); ok {
			eff.handler = h
		}
	}
	return eff
}

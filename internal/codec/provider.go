package codec

import "github.com/mvi-llc/wasm-cbuf/internal/descriptor"

// SchemaMap is the qualified-name-keyed descriptor table produced by
// internal/descriptor.Emit (spec.md §6 operation 1's `schema`).
type SchemaMap map[string]*descriptor.Struct

// HashIndex is the hash-keyed secondary index over a SchemaMap (spec.md
// §4.J / §6 operation 2).
type HashIndex map[uint64]*descriptor.Struct

// NewHashIndex derives a HashIndex from schema, failing with
// KindAmbiguousHash when two distinct descriptors hash to the same
// value (spec.md §4.J, §7), surfaced here since it can only be
// detected once every struct in schema has been hashed.
func NewHashIndex(schema SchemaMap) (HashIndex, error) {
	idx := make(HashIndex, len(schema))
	for _, desc := range schema {
		if existing, ok := idx[desc.HashValue]; ok && existing.Name != desc.Name {
			return nil, errf(KindAmbiguousHash, "ambiguous hash %#x: %q and %q", desc.HashValue, existing.Name, desc.Name)
		}
		idx[desc.HashValue] = desc
	}
	return idx, nil
}

// DescriptorProvider resolves a struct hash to its descriptor. It is
// the seam through which tests substitute the hash lookup (see
// mock_descriptor_provider.go); a substituted provider replaces the
// production hash-index-plus-bootstrap lookup entirely.
type DescriptorProvider interface {
	Resolve(hash uint64) (*descriptor.Struct, bool)
}

// hashIndexProvider is the production DescriptorProvider: look up the
// user schema's hash index first, then fall back to the built-in
// cbufmsg::metadata descriptor (spec.md §4.H step 2, §4.K).
type hashIndexProvider struct {
	idx HashIndex
}

// NewProvider wraps idx as a DescriptorProvider with bootstrap fallback.
func NewProvider(idx HashIndex) DescriptorProvider {
	return hashIndexProvider{idx: idx}
}

func (p hashIndexProvider) Resolve(hash uint64) (*descriptor.Struct, bool) {
	if d, ok := p.idx[hash]; ok {
		return d, true
	}
	boot, err := descriptor.Bootstrap()
	if err == nil && boot.HashValue == hash {
		return boot, true
	}
	return nil, false
}

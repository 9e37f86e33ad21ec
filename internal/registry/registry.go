// Package registry builds on internal/codec's hash index (spec.md
// §4.J) with a mutable SchemaSet that absorbs additional
// cbufmsg::metadata records encountered mid-stream (spec.md §9's
// self-describing-stream design note, made concrete), merging their
// schema text into a live descriptor map + hash index.
package registry

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mvi-llc/wasm-cbuf/internal/codec"
	"github.com/mvi-llc/wasm-cbuf/internal/descriptor"
	"github.com/mvi-llc/wasm-cbuf/internal/parser"
)

// versionPragma extracts an optional `@version "x.y.z"` comment-adjacent
// tag from a schema chunk, the supplemented generation marker consulted
// when a redescribed struct's hash differs from what is already
// registered (spec.md §4.K's bootstrap, extended per SPEC_FULL.md §3).
var versionPragma = regexp.MustCompile(`@version\s+"([^"]+)"`)

// SchemaSet is a concurrency-safe, growable view over a descriptor
// table and its hash index. Readers call Schema/HashIndex freely;
// Absorb is the only mutator.
type SchemaSet struct {
	mu       sync.RWMutex
	schema   codec.SchemaMap
	index    codec.HashIndex
	versions map[string]*semver.Version

	group singleflight.Group
}

// NewSchemaSet seeds a SchemaSet from a base schema map (may be empty,
// per spec.md §8's "initial hash index is empty" self-describing-stream
// property).
func NewSchemaSet(schema codec.SchemaMap) (*SchemaSet, error) {
	if schema == nil {
		schema = codec.SchemaMap{}
	}
	idx, err := codec.NewHashIndex(schema)
	if err != nil {
		return nil, err
	}
	return &SchemaSet{
		schema:   schema,
		index:    idx,
		versions: map[string]*semver.Version{},
	}, nil
}

// Schema returns a snapshot copy of the current descriptor map.
func (s *SchemaSet) Schema() codec.SchemaMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(codec.SchemaMap, len(s.schema))
	for k, v := range s.schema {
		out[k] = v
	}
	return out
}

// HashIndex returns a snapshot copy of the current hash index.
func (s *SchemaSet) HashIndex() codec.HashIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(codec.HashIndex, len(s.index))
	for k, v := range s.index {
		out[k] = v
	}
	return out
}

// Absorb parses schemaText (a cbufmsg::metadata record's msg_meta
// field) and merges its structs into the set. Concurrent Absorb calls
// carrying byte-identical text are coalesced through singleflight, so a
// burst of decoders hitting the same redescription mid-stream triggers
// one parse rather than one per caller.
func (s *SchemaSet) Absorb(schemaText string) error {
	_, err, _ := s.group.Do(schemaText, func() (interface{}, error) {
		return nil, s.absorb(schemaText)
	})
	return err
}

func (s *SchemaSet) absorb(schemaText string) error {
	prog, err := parser.New(schemaText).Parse()
	if err != nil {
		return fmt.Errorf("registry: absorbing schema: %w", err)
	}
	incoming, _, err := descriptor.Emit(prog)
	if err != nil {
		return fmt.Errorf("registry: absorbing schema: %w", err)
	}

	s.mu.RLock()
	known := make(map[string]*descriptor.Struct, len(s.schema)+len(incoming))
	for k, v := range s.schema {
		known[k] = v
	}
	s.mu.RUnlock()
	for k, v := range incoming {
		known[k] = v
	}
	if err := validateConcurrently(incoming, known); err != nil {
		return err
	}

	var taggedVersion *semver.Version
	if m := versionPragma.FindStringSubmatch(schemaText); m != nil {
		v, err := semver.NewVersion(m[1])
		if err == nil {
			taggedVersion = v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, desc := range incoming {
		existing, ok := s.schema[name]
		switch {
		case !ok:
			s.schema[name] = desc
			if taggedVersion != nil {
				s.versions[name] = taggedVersion
			}
		case existing.HashValue == desc.HashValue:
			// identical redefinition; nothing to do.
		case taggedVersion != nil && s.versions[name] != nil && taggedVersion.GreaterThan(s.versions[name]):
			s.schema[name] = desc
			s.versions[name] = taggedVersion
		case taggedVersion != nil && s.versions[name] == nil:
			s.schema[name] = desc
			s.versions[name] = taggedVersion
		default:
			return fmt.Errorf("registry: %q redescribed with hash %#x, already registered at %#x with no higher @version tag", name, desc.HashValue, existing.HashValue)
		}
	}

	idx, err := codec.NewHashIndex(s.schema)
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}

// validateConcurrently sanity-checks every newly emitted struct: no
// duplicate field names, and every complex element reference resolves
// within known (the already-registered structs plus the incoming
// batch). Each struct's check runs in its own errgroup goroutine.
func validateConcurrently(batch, known map[string]*descriptor.Struct) error {
	var g errgroup.Group
	for _, desc := range batch {
		desc := desc
		g.Go(func() error { return validateStruct(desc, known) })
	}
	return g.Wait()
}

func validateStruct(desc *descriptor.Struct, batch map[string]*descriptor.Struct) error {
	seen := make(map[string]bool, len(desc.Elements))
	for _, el := range desc.Elements {
		if seen[el.Name] {
			return fmt.Errorf("registry: struct %q: duplicate field %q", desc.Name, el.Name)
		}
		seen[el.Name] = true
		if el.IsComplex {
			if _, ok := batch[el.Type]; !ok {
				return fmt.Errorf("registry: struct %q: field %q references unresolved type %q", desc.Name, el.Name, el.Type)
			}
		}
	}
	return nil
}

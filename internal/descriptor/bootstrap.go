package descriptor

import (
	"sync"

	"github.com/mvi-llc/wasm-cbuf/internal/parser"
)

// bootstrapSchema is the built-in "cbufmsg::metadata" struct used to
// decode the metadata records of self-describing streams, per spec.md
// §4.K. It is
// never written by a user schema; every consumer that needs its
// descriptor or hash gets it from Bootstrap()/BootstrapHash(), derived
// by running it through the very same pipeline as user schemas so it
// can never drift from the hash a real parse would produce.
const bootstrapSchema = `
namespace cbufmsg {
	struct metadata {
		u64 msg_hash;
		string msg_name;
		string msg_meta;
	}
}
`

var bootstrapOnce struct {
	sync.Once
	desc *Struct
	err  error
}

// Bootstrap returns the descriptor of the built-in cbufmsg::metadata
// struct, computed once and memoized.
func Bootstrap() (*Struct, error) {
	bootstrapOnce.Do(func() {
		prog, err := parser.New(bootstrapSchema).Parse()
		if err != nil {
			bootstrapOnce.err = err
			return
		}
		table, _, err := Emit(prog)
		if err != nil {
			bootstrapOnce.err = err
			return
		}
		bootstrapOnce.desc = table["cbufmsg::metadata"]
	})
	return bootstrapOnce.desc, bootstrapOnce.err
}

// BootstrapHashValue is the expected hash of the bootstrap struct,
// stated literally in spec.md §4.F/§8 as the canonical worked example;
// it exists so callers (and tests) can check Bootstrap() against a
// value that isn't computed by the same code it's meant to verify.
const BootstrapHashValue = uint64(0xBE6738D544AB72C6)

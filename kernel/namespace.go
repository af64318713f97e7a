package kernel

import "github.com/puzpuzpuz/xsync/v3"

// Namespace is the Kernel process's own symbol table (SPEC_FULL §3 "Kernel
// Namespace"). In cmd/kernel it mirrors the Python cells' serializable
// bindings and is read by SQL template binding, all on the kernel's single
// execution goroutine. It is backed by a lock-free concurrent map, so
// concurrent access is also safe.
type Namespace struct {
	values *xsync.MapOf[string, any]
}

func NewNamespace() *Namespace {
	return &Namespace{values: xsync.NewMapOf[string, any]()}
}

func (n *Namespace) Get(name string) (any, bool) {
	return n.values.Load(name)
}

func (n *Namespace) Set(name string, value any) {
	n.values.Store(name, value)
}

func (n *Namespace) Delete(name string) {
	n.values.Delete(name)
}

func (n *Namespace) Snapshot() map[string]any {
	out := make(map[string]any)
	n.values.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// PurgeUniquelyOwned removes every symbol in `owned` that is not also in
// `stillWritten` — i.e. symbols only the deleted cell ever wrote
// (SPEC_FULL §3 "Lifecycle", §4.4 "Cell registration").
func (n *Namespace) PurgeUniquelyOwned(owned map[string]struct{}, stillWritten map[string]struct{}) {
	for sym := range owned {
		if _, ok := stillWritten[sym]; !ok {
			n.values.Delete(sym)
		}
	}
}

// Package heap backs the Wren VM's heap with a host-managed allocator.
//
// Wren routes every heap operation through a single reallocate callback:
//
//	reallocate(pointer_or_null, new_size, user_data) -> pointer_or_null
//
// The callback does not carry a block's old size on resize or free, so the
// Adapter keeps a side table mapping each live address to the size most
// recently requested for it. The table is the single size authority; blocks
// carry no embedded headers, keeping the adapter decoupled from allocator
// internals.
//
// # Case Dispatch
//
// The four sentinel combinations of the C callback are modeled as an
// explicit tagged case rather than pointer-sentinel logic:
//
//	(null, 0)  nop     returns null
//	(null, n)  alloc   records (addr, n); null on out-of-memory
//	(p, 0)     free    releases p with its recorded size
//	(p, n)     resize  moves the table entry to the resulting address
//
// # Failure Semantics
//
// Allocation failure is recoverable: it propagates as a null return, which
// the VM interprets as out-of-memory. A lookup miss on free or resize is a
// programming-invariant violation (double free, foreign pointer) and
// panics; continuing would desynchronize the table from the real heap.
//
// # Ownership Order
//
// The adapter must be created before the VM that uses it and closed only
// after that VM has been destroyed. Close releases every block still
// tracked. The adapter is unsynchronized shared state scoped to one VM;
// it must not be used from multiple goroutines without external locking.
//
// # Host Allocator
//
// FreeList implements the wrenruntime.Allocator contract over the guest's
// linear memory: first-fit with block splitting, coalescing on free, and
// arena growth by whole pages through a Grower.
package heap

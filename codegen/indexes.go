package codegen

// indexAllocator issues monotonically increasing indices starting at zero.
// Issued indices are never reused or renumbered, so each entity kind's index
// space stays dense.
type indexAllocator struct {
	next uint32
}

func (a *indexAllocator) Next() uint32 {
	n := a.next
	a.next++
	return n
}

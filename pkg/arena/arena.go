// Package arena implements the LIFO region allocator that backs the VM's
// activation records.
//
// An Arena is a grow-only ordered sequence of fixed-size blocks plus a
// cursor identifying the active block. Allocate hands out a contiguous
// byte slice from the active block's payload and records, immediately
// after that payload, the block offset the allocation started at -
// forming an implicit LIFO stack of allocations inside the block. Return
// reads that trailing word back and rewinds the block's offset to it.
//
// This only works, and only needs to work, because the VM's call/return
// discipline is itself strictly LIFO: every create_frame is paired with
// a destroy_frame in exact reverse order (spec.md §4.2). Allocate/Return
// calls that don't nest this way produce garbage; the arena does not
// defend against misuse, matching the original's allocFromArena/
// returnToArena in original_source/playvm.c, which perform no such
// checks either.
//
// Address arithmetic note (spec.md §4.2 "Note (ambiguous source)"): the
// C original computes slab addresses with `block + sizeof(Header) +
// offset` on a typed ArenaBlock* pointer, which -- read literally -- would
// scale by sizeof(ArenaBlock) rather than by 1. That is almost certainly
// a latent bug in the C, not intended behavior. This implementation
// treats every offset as a plain byte offset into a []byte payload, with
// no typed-pointer arithmetic to misinterpret in the first place.
package arena

import "encoding/binary"

// BlockSize is the default block payload capacity, matching the source's
// ARENA_BLOCK_SIZE. It is a parameter of New rather than a
// hardcoded value so tests can exercise block-rollover behavior with a
// small arena.
const BlockSize = 4096

// offsetWordSize is the width of the trailing offset-word written after
// every allocation's payload, used to recover the LIFO chain on Return.
const offsetWordSize = 8

// block is one fixed-capacity slab plus a bump cursor.
type block struct {
	payload []byte
	offset  int
}

// Arena is the region allocator. Frame creation calls Allocate once per
// call; frame teardown calls Return once per return, in exact reverse
// order.
type Arena struct {
	blocks    []*block
	pos       int
	blockSize int
}

// New creates an Arena whose blocks have the given payload capacity.
// Use BlockSize for the spec's documented default.
func New(blockSize int) *Arena {
	a := &Arena{blockSize: blockSize}
	a.addBlock()
	return a
}

func (a *Arena) addBlock() {
	a.blocks = append(a.blocks, &block{payload: make([]byte, a.blockSize)})
}

// Allocate reserves n bytes from the arena and returns them as a slice
// backed by the arena's storage. The caller must Return allocations in
// exact LIFO order.
//
// If the active block has no room for n bytes plus the trailing
// offset-word, Allocate advances to the next block: reusing one already
// present past the cursor (left over from an earlier deeper call chain
// that has since unwound) before appending a brand new one. n plus the
// offset-word size must fit within an empty block; Allocate panics
// otherwise, matching spec.md §7's "resource exhaustion in the arena...
// is treated as fatal."
func (a *Arena) Allocate(n int) []byte {
	if n+offsetWordSize > a.blockSize {
		panic("arena: allocation larger than block capacity")
	}

	active := a.blocks[a.pos]
	if active.offset+n+offsetWordSize > len(active.payload) {
		if a.pos < len(a.blocks)-1 {
			a.pos++
			a.blocks[a.pos].offset = 0
		} else {
			a.addBlock()
			a.pos++
		}
		active = a.blocks[a.pos]
	}

	lastOffset := active.offset
	payload := active.payload[active.offset : active.offset+n]
	active.offset += n
	binary.LittleEndian.PutUint64(active.payload[active.offset:active.offset+offsetWordSize], uint64(lastOffset))
	active.offset += offsetWordSize

	return payload
}

// Return releases the most recently made allocation. It must be called
// in exact reverse order of the matching Allocate calls; the arena
// trusts its caller the same way the original's returnToArena does.
func (a *Arena) Return() {
	active := a.blocks[a.pos]
	prevOffset := binary.LittleEndian.Uint64(active.payload[active.offset-offsetWordSize : active.offset])
	active.offset = int(prevOffset)
	if active.offset == 0 && a.pos > 0 {
		a.pos--
	}
}

// Pos and Offset expose the arena's cursor for tests that verify the
// "between any balanced call/return pair the arena's (pos, active.offset)
// returns to exactly the value it held at call entry" property (spec.md
// §8).
func (a *Arena) Pos() int { return a.pos }

// Offset returns the active block's current write offset.
func (a *Arena) Offset() int { return a.blocks[a.pos].offset }

// NumBlocks reports how many blocks the arena has ever allocated, for
// tests that check block reuse rather than unbounded growth.
func (a *Arena) NumBlocks() int { return len(a.blocks) }

// Package merkletree is the Merkle-backed storage gadget of spec
// section 6: contract-mode circuits read and write persistent storage
// through Load/Store/RootHash, and never see how the tree is hashed.
// This is the reference implementation shipped with the toolchain.
package merkletree

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/sentra-lang/zincvm/internal/field"
)

// Tree is a sparse key-value store over uint64 addresses, rooted by a
// blake2b hash of its occupied leaves.
type Tree struct {
	leaves map[uint64]field.Element
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{leaves: make(map[uint64]field.Element)}
}

// Load reads size consecutive cells starting at addr. Absent cells
// read as field.Zero, matching an untouched storage slot.
func (t *Tree) Load(addr uint64, size int) ([]field.Element, error) {
	out := make([]field.Element, size)
	for i := 0; i < size; i++ {
		if v, ok := t.leaves[addr+uint64(i)]; ok {
			out[i] = v
		} else {
			out[i] = field.Zero()
		}
	}
	return out, nil
}

// Store writes vals starting at addr.
func (t *Tree) Store(addr uint64, vals []field.Element) error {
	for i, v := range vals {
		t.leaves[addr+uint64(i)] = v
	}
	return nil
}

// RootHash hashes every occupied leaf, in address order, into a single
// blake2b-256 digest. It is not a full authenticated Merkle tree with
// per-leaf inclusion proofs — the narrow interface the executor relies
// on (section 6) only ever asks for the root, so that is all this
// reference implementation computes.
func (t *Tree) RootHash() []byte {
	addrs := make([]uint64, 0, len(t.leaves))
	for a := range t.leaves {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, a := range addrs {
		binary.BigEndian.PutUint64(buf[:], a)
		h.Write(buf[:])
		h.Write(t.leaves[a].Bytes())
	}
	return h.Sum(nil)
}

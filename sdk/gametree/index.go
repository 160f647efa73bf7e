package gametree

import (
	"fmt"

	chd "github.com/opencoff/go-chd"

	"github.com/lox/cfrsolve/sdk/errkind"
)

// Index is the bidirectional mapping between a tree node's base info-set
// key and its node index, built once at tree-construction time. The base
// keys are known in full as soon as the betting tree exists, so a minimal
// perfect hash over them gives O(1), allocation-free lookups during
// solving instead of a general-purpose map.
type Index struct {
	chd   *chd.CHD
	nodes []int32 // nodes[chd.Find(key)] == node index owning that key
	keys  []string
}

// BuildIndex constructs the key/index mapping for every player node in the
// tree (chance and terminal nodes have no info set and are omitted).
func BuildIndex(t *Tree) (*Index, error) {
	var keys []string
	var nodeIDs []int32
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !n.IsPlayer() {
			continue
		}
		keys = append(keys, n.InfoSetKeyBase)
		nodeIDs = append(nodeIDs, n.ID)
	}

	builder := chd.NewBuilder()
	for _, k := range keys {
		builder.Add([]byte(k))
	}
	h, err := builder.Freeze(1.0)
	if err != nil {
		return nil, fmt.Errorf("%w: building node index: %v", errkind.TreeShapeError, err)
	}

	nodes := make([]int32, len(keys))
	for i, k := range keys {
		slot := h.Find([]byte(k))
		if int(slot) >= len(nodes) {
			return nil, fmt.Errorf("%w: node index slot %d out of range", errkind.TreeShapeError, slot)
		}
		nodes[slot] = nodeIDs[i]
	}

	return &Index{chd: h, nodes: nodes, keys: keys}, nil
}

// NodeForKey returns the node index owning the given base info-set key.
func (ix *Index) NodeForKey(key string) (int32, bool) {
	if ix == nil || len(ix.nodes) == 0 {
		return 0, false
	}
	slot := ix.chd.Find([]byte(key))
	if int(slot) >= len(ix.nodes) {
		return 0, false
	}
	return ix.nodes[slot], true
}

// KeyForNode returns the node's own base key; it always succeeds for a
// player node since the key is stored directly on GameNode as well.
func (t *Tree) KeyForNode(idx int32) string {
	return t.Nodes[idx].InfoSetKeyBase
}

// Len reports how many player nodes the index covers.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.keys)
}

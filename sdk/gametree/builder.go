package gametree

import (
	"fmt"

	"github.com/lox/cfrsolve/sdk/errkind"
)

// BuildTree constructs the complete fixed-limit heads-up betting tree for
// the given parameters. The tree is built once, eagerly, and is immutable
// for the remainder of the run: every solving goroutine only ever reads it.
//
// Every chance node has exactly one structural child; real card dealing and
// any card-abstraction bucketing happen entirely at traversal time (see
// buildChance), keeping the arena proportional to the betting tree rather
// than the much larger space of concrete card deals.
func BuildTree(params GameParams) (*Tree, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	b := &builder{tree: &Tree{Params: params}}
	root := b.buildPlayer(NoParent, Preflop, 0, true, 0, 0,
		[2]int{params.SmallBlind, params.BigBlind}, "")
	b.tree.Root = root

	if err := b.tree.validateShape(); err != nil {
		return nil, err
	}
	return b.tree, nil
}

type builder struct {
	tree *Tree
}

func (b *builder) reserve() int32 {
	idx := int32(len(b.tree.Nodes))
	b.tree.Nodes = append(b.tree.Nodes, GameNode{ID: idx})
	return idx
}

func otherSeat(seat int8) int8 {
	if seat == 0 {
		return 1
	}
	return 0
}

func betUnit(street Street, params GameParams) int {
	if street == Turn || street == River {
		return 2 * params.BigBlind
	}
	return params.BigBlind
}

func infoSetKeyBase(seat int8, street Street, history string) string {
	return fmt.Sprintf("seat=%d;street=%s;history=%s", seat, street, history)
}

// buildPlayer builds a player decision node and all of its descendants,
// returning the node's index. committed[0] is seat 0's (the small blind's)
// total chips in the pot, committed[1] is seat 1's (the big blind's).
func (b *builder) buildPlayer(parent int32, street Street, seat int8, facingBet bool,
	actionsThisStreet, raisesThisStreet int, committed [2]int, history string) int32 {

	idx := b.reserve()
	var children []ChildEdge

	if facingBet {
		foldHistory := history + string(ActionFold.historyByte())
		foldIdx := b.buildTerminalFold(idx, street, seat, committed, foldHistory)
		children = append(children, ChildEdge{Action: ActionFold, Label: int32(ActionFold), Index: foldIdx})
	}

	callCommitted := committed
	var closesStreet bool
	if facingBet {
		callCommitted[seat] = committed[otherSeat(seat)]
		closesStreet = true
	} else {
		closesStreet = actionsThisStreet > 0
	}
	callHistory := history + string(ActionCall.historyByte())
	var callIdx int32
	if closesStreet {
		callIdx = b.buildStreetClose(idx, street, callCommitted, callHistory)
	} else {
		callIdx = b.buildPlayer(idx, street, otherSeat(seat), false, actionsThisStreet+1,
			raisesThisStreet, callCommitted, callHistory)
	}
	children = append(children, ChildEdge{Action: ActionCall, Label: int32(ActionCall), Index: callIdx})

	if raisesThisStreet < b.tree.Params.MaxRaisesPerStreet {
		raiseCommitted := committed
		raiseCommitted[seat] = committed[otherSeat(seat)] + betUnit(street, b.tree.Params)
		raiseHistory := history + string(ActionRaise.historyByte())
		raiseIdx := b.buildPlayer(idx, street, otherSeat(seat), true, 0, raisesThisStreet+1,
			raiseCommitted, raiseHistory)
		children = append(children, ChildEdge{Action: ActionRaise, Label: int32(ActionRaise), Index: raiseIdx})
	}

	b.tree.Nodes[idx] = GameNode{
		ID:               idx,
		Parent:           parent,
		Kind:             NodeKind{Tag: KindPlayer, Seat: seat},
		Street:           street,
		PotAtEntry:       committed[0] + committed[1],
		RaisesThisStreet: raisesThisStreet,
		FacingBet:        facingBet,
		ActionHistory:    history,
		Children:         children,
		InfoSetKeyBase:   infoSetKeyBase(seat, street, history),
		CommittedSB:      committed[0],
		CommittedBB:      committed[1],
	}
	return idx
}

// buildStreetClose is reached once the current street's betting round has
// closed (a call, or two consecutive checks). It advances to the next
// street's chance node, or to a showdown terminal on the river, or when
// PreflopOnly stops street transitions early.
func (b *builder) buildStreetClose(parent int32, street Street, committed [2]int, history string) int32 {
	if street == River || (b.tree.Params.PreflopOnly && street == Preflop) {
		return b.buildTerminalShowdown(parent, street, committed, history)
	}
	return b.buildChance(parent, street+1, committed, history)
}

// buildChance builds the chance node transitioning into the given street.
// It always has exactly one structural child: dealing is left entirely to
// the runtime Sampling component, which reasons about the real
// combinatorial width of the remaining deck rather than a tree branching
// factor. AbstractionBuckets instead controls how coarsely the runtime
// quantizes the canonical board key derived from whatever cards Sampling
// deals (see sdk/abstraction) - it does not change the arena's shape.
func (b *builder) buildChance(parent int32, street Street, committed [2]int, history string) int32 {
	idx := b.reserve()

	// Post-flop action always reopens with the big blind seat.
	childIdx := b.buildPlayer(idx, street, 1, false, 0, 0, committed, history)
	children := []ChildEdge{{Label: 0, Index: childIdx}}

	b.tree.Nodes[idx] = GameNode{
		ID:             idx,
		Parent:         parent,
		Kind:           NodeKind{Tag: KindChance},
		Street:         street,
		PotAtEntry:     committed[0] + committed[1],
		ActionHistory:  history,
		Children:       children,
		InfoSetKeyBase: fmt.Sprintf("chance;street=%s;history=%s", street, history),
		CommittedSB:    committed[0],
		CommittedBB:    committed[1],
	}
	return idx
}

func (b *builder) buildTerminalFold(parent int32, street Street, foldingSeat int8, committed [2]int, history string) int32 {
	idx := b.reserve()
	b.tree.Nodes[idx] = GameNode{
		ID:             idx,
		Parent:         parent,
		Kind:           NodeKind{Tag: KindTerminal, Terminal: TerminalFold},
		Street:         street,
		PotAtEntry:     committed[0] + committed[1],
		ActionHistory:  history,
		InfoSetKeyBase: fmt.Sprintf("terminal-fold;street=%s;history=%s", street, history),
		CommittedSB:    committed[0],
		CommittedBB:    committed[1],
		FoldingSeat:    foldingSeat,
	}
	return idx
}

func (b *builder) buildTerminalShowdown(parent int32, street Street, committed [2]int, history string) int32 {
	idx := b.reserve()
	b.tree.Nodes[idx] = GameNode{
		ID:             idx,
		Parent:         parent,
		Kind:           NodeKind{Tag: KindTerminal, Terminal: TerminalShowdown},
		Street:         street,
		PotAtEntry:     committed[0] + committed[1],
		ActionHistory:  history,
		InfoSetKeyBase: fmt.Sprintf("terminal-showdown;street=%s;history=%s", street, history),
		CommittedSB:    committed[0],
		CommittedBB:    committed[1],
	}
	return idx
}

// validateShape re-checks the structural invariants the builder is supposed
// to guarantee by construction. It runs once after a tree is built and
// turns a latent builder bug into an immediate TreeShapeError rather than a
// subtle traversal miscalculation later.
func (t *Tree) validateShape() error {
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if int(n.ID) != i {
			return fmt.Errorf("%w: node %d has mismatched id %d", errkind.TreeShapeError, i, n.ID)
		}
		if n.Parent != NoParent && (n.Parent < 0 || int(n.Parent) >= len(t.Nodes)) {
			return fmt.Errorf("%w: node %d has out-of-range parent %d", errkind.TreeShapeError, i, n.Parent)
		}
		if n.Kind.Tag == KindTerminal && n.Terminal() == TerminalFold && n.ActionHistory != "" && n.ActionHistory[len(n.ActionHistory)-1] != 'f' {
			return fmt.Errorf("%w: node %d is a fold terminal with history %q", errkind.TreeShapeError, i, n.ActionHistory)
		}
		if n.RaisesThisStreet > t.Params.MaxRaisesPerStreet {
			return fmt.Errorf("%w: node %d exceeds the raise cap", errkind.TreeShapeError, i)
		}
		if n.RaisesThisStreet == t.Params.MaxRaisesPerStreet {
			for _, c := range n.Children {
				if c.Action == ActionRaise {
					return fmt.Errorf("%w: node %d offers a raise at the cap", errkind.TreeShapeError, i)
				}
			}
		}
		seen := make(map[int32]bool, len(n.Children))
		for _, c := range n.Children {
			if seen[int32(c.Action)] && n.Kind.Tag == KindPlayer {
				return fmt.Errorf("%w: node %d has a duplicate action child", errkind.TreeShapeError, i)
			}
			seen[int32(c.Action)] = true
			if int(c.Index) >= len(t.Nodes) {
				return fmt.Errorf("%w: node %d has an out-of-range child", errkind.TreeShapeError, i)
			}
		}
	}
	return nil
}

// Terminal returns the node's terminal kind; only meaningful when IsTerminal.
func (n GameNode) Terminal() TerminalKind { return n.Kind.Terminal }

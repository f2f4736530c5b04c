package orderbook

// rbNode is a node in the PriceTree, keyed by price. Unlike a classic
// CLRS red-black tree, a left-leaning red-black tree colors links, not
// nodes: "red" on an rbNode means the link from its parent is red. There
// is no sentinel -- an absent child is a plain nil *rbNode, and isRed(nil)
// is defined to be false, which is what lets every fixup rule below be
// stated without a separate nil-guard.
type rbNode struct {
	key         Price
	level       *PriceLevel
	red         bool
	left, right *rbNode
}

// PriceTree is an ordered index over the active price levels on one side
// of the book, implemented as a left-leaning red-black tree (Sedgewick's
// top-down insertion/deletion, not the bottom-up parent/uncle fixup of a
// standard red-black tree): every insert and delete restores the
// "no right-leaning red link, no two reds in a row" invariant on the way
// back up the recursion via rotateLeft/rotateRight/flipColors, rather
// than a separate loop that walks back toward the root after the
// structural change. Deletion borrows from the opposite side
// (moveRedLeft/moveRedRight) so the recursion always has a node to
// spare before it descends, instead of deleting first and fixing
// violations up afterward.
//
// The extremum level ("best") is cached by *PriceLevel rather than by
// node pointer: an in-place delete-by-key can rewrite a surviving
// rbNode's key and level (the usual successor-splice optimization), so
// an rbNode pointer captured before a delete may no longer name the
// price it did; PriceLevel objects themselves are never mutated or
// swapped, so caching the level is the stable choice.
type PriceTree struct {
	root *rbNode

	// descending selects which extremum is "best": true for Buy (best =
	// highest price), false for Sell (best = lowest price).
	descending bool

	best *PriceLevel

	size          int
	TotalVolume   uint64
	TotalCount    uint32
	LastBestPrice Price
}

// NewPriceTree creates an empty price index. descending=true orders the
// tree so Best() returns the maximum key (used for the Buy side).
func NewPriceTree(descending bool) *PriceTree {
	return &PriceTree{descending: descending}
}

// Best returns the extremum PriceLevel (highest price for a descending /
// Buy tree, lowest for an ascending / Sell tree), or nil if empty.
func (t *PriceTree) Best() *PriceLevel {
	return t.best
}

// BestPrice returns the extremum price, or 0 if the tree is empty.
func (t *PriceTree) BestPrice() Price {
	if t.best != nil {
		return t.best.Price
	}
	return 0
}

// Len reports the number of distinct price levels currently indexed.
func (t *PriceTree) Len() int {
	return t.size
}

// Find looks up the level at an exact price, or nil.
func (t *PriceTree) Find(price Price) *PriceLevel {
	n := t.root
	for n != nil {
		if price < n.key {
			n = n.left
		} else if price > n.key {
			n = n.right
		} else {
			return n.level
		}
	}
	return nil
}

// GetOrCreate returns the existing level at price, creating and indexing a
// new empty one if none exists yet.
func (t *PriceTree) GetOrCreate(price Price) *PriceLevel {
	if lvl := t.Find(price); lvl != nil {
		return lvl
	}
	lvl := &PriceLevel{Price: price}
	t.root = t.insert(t.root, price, lvl)
	t.root.red = false
	t.size++
	if t.better(lvl.Price) {
		t.best = lvl
	}
	return lvl
}

// better reports whether price would become the new extremum given what
// is currently cached, without needing a tree walk.
func (t *PriceTree) better(price Price) bool {
	if t.best == nil {
		return true
	}
	if t.descending {
		return price > t.best.Price
	}
	return price < t.best.Price
}

// Erase removes a level from the index once its FIFO has emptied. The
// caller (SideBook) is responsible for having already popped the level to
// empty.
func (t *PriceTree) Erase(lvl *PriceLevel) {
	if t.Find(lvl.Price) == nil {
		return
	}
	erasingBest := t.best == lvl
	if erasingBest {
		t.LastBestPrice = lvl.Price
	}

	if !isRed(t.root.left) && !isRed(t.root.right) {
		t.root.red = true
	}
	t.root = t.delete(t.root, lvl.Price)
	if t.root != nil {
		t.root.red = false
	}
	t.size--

	if erasingBest {
		t.best = t.extremum()
	}
}

// ForEach walks every level in price order from the best price to the
// worst (ascending for Sell, descending for Buy).
func (t *PriceTree) ForEach(fn func(*PriceLevel) bool) {
	if t.descending {
		t.reverseInOrder(t.root, fn)
	} else {
		t.inOrder(t.root, fn)
	}
}

// ---- traversal ----

func (t *PriceTree) inOrder(n *rbNode, fn func(*PriceLevel) bool) bool {
	if n == nil {
		return true
	}
	if !t.inOrder(n.left, fn) {
		return false
	}
	if !fn(n.level) {
		return false
	}
	return t.inOrder(n.right, fn)
}

func (t *PriceTree) reverseInOrder(n *rbNode, fn func(*PriceLevel) bool) bool {
	if n == nil {
		return true
	}
	if !t.reverseInOrder(n.right, fn) {
		return false
	}
	if !fn(n.level) {
		return false
	}
	return t.reverseInOrder(n.left, fn)
}

// extremum walks from the root to recompute the current best level after
// the erased level was the cached one. O(log N), the same cost as the
// rebalancing that just ran.
func (t *PriceTree) extremum() *PriceLevel {
	n := t.root
	if n == nil {
		return nil
	}
	if t.descending {
		for n.right != nil {
			n = n.right
		}
	} else {
		for n.left != nil {
			n = n.left
		}
	}
	return n.level
}

// ---- left-leaning red-black primitives ----

func isRed(n *rbNode) bool {
	return n != nil && n.red
}

func (t *PriceTree) rotateLeft(h *rbNode) *rbNode {
	x := h.right
	h.right = x.left
	x.left = h
	x.red = h.red
	h.red = true
	return x
}

func (t *PriceTree) rotateRight(h *rbNode) *rbNode {
	x := h.left
	h.left = x.right
	x.right = h
	x.red = h.red
	h.red = true
	return x
}

func (t *PriceTree) flipColors(h *rbNode) {
	h.red = !h.red
	h.left.red = !h.left.red
	h.right.red = !h.right.red
}

// insert descends to an external link, hangs a new red node there, then
// restores the left-leaning invariant on the way back up: a right-leaning
// red link gets rotated left, two reds in a row on the left get rotated
// right, and a node red on both sides gets its color flipped down to its
// children (pushing the "extra" black up one level, the 2-3 tree
// equivalent of a node temporarily holding 4 keys).
func (t *PriceTree) insert(h *rbNode, price Price, lvl *PriceLevel) *rbNode {
	if h == nil {
		return &rbNode{key: price, level: lvl, red: true}
	}
	if price < h.key {
		h.left = t.insert(h.left, price, lvl)
	} else if price > h.key {
		h.right = t.insert(h.right, price, lvl)
	}
	return t.fixUp(h)
}

// fixUp restores the left-leaning invariant at h after a child subtree
// changed shape, whether by insert or delete. The three checks are
// order-dependent: a right-leaning red must be rotated away before the
// left-left-red case can be detected, and colors are only flipped once
// both children are confirmed red.
func (t *PriceTree) fixUp(h *rbNode) *rbNode {
	if isRed(h.right) && !isRed(h.left) {
		h = t.rotateLeft(h)
	}
	if isRed(h.left) && isRed(h.left.left) {
		h = t.rotateRight(h)
	}
	if isRed(h.left) && isRed(h.right) {
		t.flipColors(h)
	}
	return h
}

// moveRedLeft borrows a red link from h's right sibling so the recursion
// can descend left with a node to spare, used when delete needs to
// continue into a left child that would otherwise be a single black node
// (a 2-node, in 2-3 tree terms) with nothing to give up.
func (t *PriceTree) moveRedLeft(h *rbNode) *rbNode {
	t.flipColors(h)
	if isRed(h.right.left) {
		h.right = t.rotateRight(h.right)
		h = t.rotateLeft(h)
		t.flipColors(h)
	}
	return h
}

// moveRedRight is moveRedLeft's mirror image for descending right.
func (t *PriceTree) moveRedRight(h *rbNode) *rbNode {
	t.flipColors(h)
	if isRed(h.left.left) {
		h = t.rotateRight(h)
		t.flipColors(h)
	}
	return h
}

// deleteMin removes the minimum key in the subtree rooted at h, used by
// delete to splice out an internal node's successor rather than
// restructuring around the node being removed directly.
func (t *PriceTree) deleteMin(h *rbNode) *rbNode {
	if h.left == nil {
		return nil
	}
	if !isRed(h.left) && !isRed(h.left.left) {
		h = t.moveRedLeft(h)
	}
	h.left = t.deleteMin(h.left)
	return t.fixUp(h)
}

// delete removes price from the subtree rooted at h. The caller
// guarantees price is present. Deleting an internal node copies up its
// right subtree's minimum key/level in place and then deletes that
// minimum from the right subtree, rather than unlinking h directly --
// the standard trick that avoids a second rebalancing pass for the
// two-children case.
func (t *PriceTree) delete(h *rbNode, price Price) *rbNode {
	if price < h.key {
		if !isRed(h.left) && !isRed(h.left.left) {
			h = t.moveRedLeft(h)
		}
		h.left = t.delete(h.left, price)
	} else {
		if isRed(h.left) {
			h = t.rotateRight(h)
		}
		if price == h.key && h.right == nil {
			return nil
		}
		if !isRed(h.right) && !isRed(h.right.left) {
			h = t.moveRedRight(h)
		}
		if price == h.key {
			successor := t.min(h.right)
			h.key = successor.key
			h.level = successor.level
			h.right = t.deleteMin(h.right)
		} else {
			h.right = t.delete(h.right, price)
		}
	}
	return t.fixUp(h)
}

func (t *PriceTree) min(n *rbNode) *rbNode {
	for n.left != nil {
		n = n.left
	}
	return n
}

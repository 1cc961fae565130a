// Package bptree is an in-memory B+tree with ordered iteration over linked
// leaves.
package bptree

import (
	"cmp"
	"sync"
)

// DefaultOrder is the fallback branching factor if a user-supplied order is too small.
const DefaultOrder = 4

// BPlusTree maps keys to values in key order. It is safe for concurrent
// use: readers share a lock, writers hold it exclusively.
type BPlusTree[K any, V any] struct {
	root    *node[K, V]
	order   int
	height  int
	size    int
	compare func(a, b K) int
	m       sync.RWMutex
}

// node represents both internal and leaf nodes in the B+Tree.
type node[K any, V any] struct {
	isLeaf   bool
	keys     []K
	children []*node[K, V] // used if !isLeaf
	values   []V           // used if isLeaf
	parent   *node[K, V]
	next     *node[K, V] // leaf-link pointer, for range scans
}

// NewBPlusTree creates a tree over naturally ordered keys.
// If the specified order < 3, we fall back to DefaultOrder.
func NewBPlusTree[K cmp.Ordered, V any](order int) *BPlusTree[K, V] {
	return NewWithCompare[K, V](order, cmp.Compare[K])
}

// NewWithCompare creates a tree ordered by compare, which returns a
// negative number, zero or a positive number like cmp.Compare.
func NewWithCompare[K any, V any](order int, compare func(a, b K) int) *BPlusTree[K, V] {
	if order < 3 {
		order = DefaultOrder
	}
	return &BPlusTree[K, V]{
		root: &node[K, V]{
			isLeaf: true,
			keys:   make([]K, 0, order+1),
			values: make([]V, 0, order+1),
		},
		order:   order,
		height:  1,
		compare: compare,
	}
}

func (tree *BPlusTree[K, V]) Height() int {
	tree.m.RLock()
	defer tree.m.RUnlock()
	return tree.height
}

// Len returns the number of keys stored.
func (tree *BPlusTree[K, V]) Len() int {
	tree.m.RLock()
	defer tree.m.RUnlock()
	return tree.size
}

// findChildIndex determines which child pointer to follow in an internal node.
func (tree *BPlusTree[K, V]) findChildIndex(keys []K, searchKey K) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if tree.compare(searchKey, keys[mid]) < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// lowerBound returns the first index in keys not less than key.
func (tree *BPlusTree[K, V]) lowerBound(keys []K, key K) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if tree.compare(keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (tree *BPlusTree[K, V]) findLeaf(key K) *node[K, V] {
	current := tree.root
	for !current.isLeaf {
		current = current.children[tree.findChildIndex(current.keys, key)]
	}
	return current
}

// Search locates the value associated with key.
func (tree *BPlusTree[K, V]) Search(key K) (V, bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	leaf := tree.findLeaf(key)
	idx := tree.lowerBound(leaf.keys, key)
	if idx < len(leaf.keys) && tree.compare(leaf.keys[idx], key) == 0 {
		return leaf.values[idx], true
	}
	var zero V
	return zero, false
}

// Insert adds a (key, value) pair, replacing the value of an existing key.
// It reports whether the key was new.
func (tree *BPlusTree[K, V]) Insert(key K, value V) bool {
	tree.m.Lock()
	defer tree.m.Unlock()

	leaf := tree.findLeaf(key)
	idx := tree.lowerBound(leaf.keys, key)
	if idx < len(leaf.keys) && tree.compare(leaf.keys[idx], key) == 0 {
		leaf.values[idx] = value
		return false
	}

	leaf.keys = append(leaf.keys, key)
	copy(leaf.keys[idx+1:], leaf.keys[idx:])
	leaf.keys[idx] = key

	leaf.values = append(leaf.values, value)
	copy(leaf.values[idx+1:], leaf.values[idx:])
	leaf.values[idx] = value

	tree.size++
	if len(leaf.keys) > tree.order {
		tree.splitLeaf(leaf)
	}
	return true
}

// Ascend calls fn for every pair in key order until fn returns false.
func (tree *BPlusTree[K, V]) Ascend(fn func(key K, value V) bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	leaf := tree.root
	for !leaf.isLeaf {
		leaf = leaf.children[0]
	}
	tree.scan(leaf, 0, nil, fn)
}

// AscendRange calls fn for every key in [from, to) in order until fn
// returns false.
func (tree *BPlusTree[K, V]) AscendRange(from, to K, fn func(key K, value V) bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	leaf := tree.findLeaf(from)
	tree.scan(leaf, tree.lowerBound(leaf.keys, from), &to, fn)
}

// AscendGreaterOrEqual calls fn for every key >= from in order until fn
// returns false.
func (tree *BPlusTree[K, V]) AscendGreaterOrEqual(from K, fn func(key K, value V) bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	leaf := tree.findLeaf(from)
	tree.scan(leaf, tree.lowerBound(leaf.keys, from), nil, fn)
}

// scan walks the leaf chain from leaf[idx]. Must be called with the tree
// read-locked.
func (tree *BPlusTree[K, V]) scan(leaf *node[K, V], idx int, to *K, fn func(K, V) bool) {
	for leaf != nil {
		for ; idx < len(leaf.keys); idx++ {
			if to != nil && tree.compare(leaf.keys[idx], *to) >= 0 {
				return
			}
			if !fn(leaf.keys[idx], leaf.values[idx]) {
				return
			}
		}
		leaf = leaf.next
		idx = 0
	}
}

// splitLeaf handles splitting a leaf node that has overflowed.
func (tree *BPlusTree[K, V]) splitLeaf(leaf *node[K, V]) {
	mid := len(leaf.keys) / 2

	newLeaf := &node[K, V]{
		isLeaf: true,
		keys:   append([]K{}, leaf.keys[mid:]...),
		values: append([]V{}, leaf.values[mid:]...),
		next:   leaf.next,
		parent: leaf.parent,
	}

	// Adjust the original leaf
	leaf.keys = leaf.keys[:mid:mid]
	leaf.values = leaf.values[:mid:mid]
	leaf.next = newLeaf

	tree.insertIntoParent(leaf, newLeaf.keys[0], newLeaf)
}

// insertIntoParent links right after left under their parent with key as
// the separator, growing a new root when left was the root.
func (tree *BPlusTree[K, V]) insertIntoParent(left *node[K, V], key K, right *node[K, V]) {
	parent := left.parent
	if parent == nil {
		newRoot := &node[K, V]{
			isLeaf:   false,
			keys:     []K{key},
			children: []*node[K, V]{left, right},
		}
		left.parent = newRoot
		right.parent = newRoot
		tree.root = newRoot
		tree.height++
		return
	}

	idx := tree.findChildIndex(parent.keys, key)

	parent.keys = append(parent.keys, key)
	copy(parent.keys[idx+1:], parent.keys[idx:])
	parent.keys[idx] = key

	parent.children = append(parent.children, right)
	copy(parent.children[idx+2:], parent.children[idx+1:])
	parent.children[idx+1] = right

	right.parent = parent

	if len(parent.keys) > tree.order {
		tree.splitInternalNode(parent)
	}
}

// splitInternalNode handles splitting an internal node that has overflowed.
func (tree *BPlusTree[K, V]) splitInternalNode(internal *node[K, V]) {
	mid := len(internal.keys) / 2
	splitKey := internal.keys[mid]

	newInternal := &node[K, V]{
		isLeaf:   false,
		keys:     append([]K{}, internal.keys[mid+1:]...),
		children: append([]*node[K, V]{}, internal.children[mid+1:]...),
		parent:   internal.parent,
	}

	// Update children's parent pointers
	for _, child := range newInternal.children {
		child.parent = newInternal
	}

	// Adjust the original internal node
	internal.keys = internal.keys[:mid:mid]
	internal.children = internal.children[: mid+1 : mid+1]

	tree.insertIntoParent(internal, splitKey, newInternal)
}

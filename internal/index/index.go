// Package index implements a height-balanced (AVL) binary search tree of
// transactions keyed by transaction ID.
//
// The tree is not safe for concurrent use; callers that share an index
// across goroutines must serialise access themselves.
package index

import (
	"errors"
	"iter"
	"strings"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

// ErrCapacityExceeded is returned when a new key is inserted into a full
// index that does not evict.
var ErrCapacityExceeded = errors.New("index capacity exceeded")

// InsertOutcome reports what Insert did with a record.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota + 1
	AlreadyPresent
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// Rotation identifies a single rotation primitive.
type Rotation int

const (
	RotateLeft Rotation = iota
	RotateRight
)

func (r Rotation) String() string {
	if r == RotateLeft {
		return "left"
	}
	return "right"
}

// Observer is notified of structural events inside the tree.
type Observer interface {
	Rotated(r Rotation)
	Evicted(tx domain.Transaction)
}

type nopObserver struct{}

func (nopObserver) Rotated(Rotation)           {}
func (nopObserver) Evicted(domain.Transaction) {}

// Option configures a Tree.
type Option func(*Tree)

// WithCapacity bounds the number of records held. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.capacity = n
		}
	}
}

// WithEvictMinimum makes a full tree drop its smallest key to admit a new one
// instead of failing with ErrCapacityExceeded.
func WithEvictMinimum() Option {
	return func(t *Tree) {
		t.evictMin = true
	}
}

// WithObserver registers an Observer for rotations and evictions.
func WithObserver(o Observer) Option {
	return func(t *Tree) {
		if o != nil {
			t.observer = o
		}
	}
}

// Tree is an AVL tree of transactions ordered by ID (byte-wise).
type Tree struct {
	root     *node
	size     int
	capacity int
	evictMin bool
	observer Observer
}

// New returns an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{observer: nopObserver{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Len returns the number of records in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Height returns the height of the root (0 for an empty tree).
func (t *Tree) Height() int {
	return height(t.root)
}

// Capacity returns the configured record limit, 0 when unbounded.
func (t *Tree) Capacity() int {
	return t.capacity
}

// Insert adds tx keyed by tx.ID. An existing record with the same ID is left
// untouched and AlreadyPresent is returned. When the tree is full the call
// either evicts the minimum key or fails before any node is linked.
func (t *Tree) Insert(tx domain.Transaction) (InsertOutcome, error) {
	if t.capacity > 0 && t.size >= t.capacity {
		if t.Contains(tx.ID) {
			return AlreadyPresent, nil
		}
		if !t.evictMin {
			return 0, ErrCapacityExceeded
		}
		victim := minNode(t.root).tx
		t.Delete(victim.ID)
		t.observer.Evicted(victim)
	}

	root, added := t.insert(t.root, tx)
	t.root = root
	if !added {
		return AlreadyPresent, nil
	}
	t.size++
	return Inserted, nil
}

func (t *Tree) insert(n *node, tx domain.Transaction) (*node, bool) {
	if n == nil {
		return newNode(tx), true
	}

	var added bool
	switch c := strings.Compare(tx.ID, n.tx.ID); {
	case c < 0:
		n.left, added = t.insert(n.left, tx)
	case c > 0:
		n.right, added = t.insert(n.right, tx)
	default:
		return n, false
	}
	if !added {
		return n, false
	}

	n.fix()
	switch bf := balance(n); {
	case bf > 1:
		// left-right: the new key landed right of the left child
		if tx.ID > n.left.tx.ID {
			n.left = t.rotateLeft(n.left)
		}
		return t.rotateRight(n), true
	case bf < -1:
		// right-left
		if tx.ID < n.right.tx.ID {
			n.right = t.rotateRight(n.right)
		}
		return t.rotateLeft(n), true
	}
	return n, true
}

// Search returns the record stored under id.
func (t *Tree) Search(id string) (domain.Transaction, bool) {
	n := t.root
	for n != nil {
		switch c := strings.Compare(id, n.tx.ID); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n.tx, true
		}
	}
	return domain.Transaction{}, false
}

// Contains reports whether id is present.
func (t *Tree) Contains(id string) bool {
	_, ok := t.Search(id)
	return ok
}

// Delete removes the record stored under id and reports whether one existed.
func (t *Tree) Delete(id string) bool {
	root, removed := t.delete(t.root, id)
	t.root = root
	if removed {
		t.size--
	}
	return removed
}

func (t *Tree) delete(n *node, id string) (*node, bool) {
	if n == nil {
		return nil, false
	}

	var removed bool
	switch c := strings.Compare(id, n.tx.ID); {
	case c < 0:
		n.left, removed = t.delete(n.left, id)
	case c > 0:
		n.right, removed = t.delete(n.right, id)
	default:
		if n.left == nil {
			return n.right, true
		}
		if n.right == nil {
			return n.left, true
		}
		succ := minNode(n.right)
		n.tx = succ.tx
		n.right, _ = t.delete(n.right, succ.tx.ID)
		removed = true
	}
	if !removed {
		return n, false
	}

	n.fix()
	return t.rebalanceAfterDelete(n), true
}

// Min returns the record with the smallest ID.
func (t *Tree) Min() (domain.Transaction, bool) {
	if t.root == nil {
		return domain.Transaction{}, false
	}
	return minNode(t.root).tx, true
}

// Max returns the record with the largest ID.
func (t *Tree) Max() (domain.Transaction, bool) {
	n := t.root
	if n == nil {
		return domain.Transaction{}, false
	}
	for n.right != nil {
		n = n.right
	}
	return n.tx, true
}

// All yields every record in ascending ID order. Each call starts a fresh
// traversal. The tree must not be mutated while a traversal is in progress.
func (t *Tree) All() iter.Seq[domain.Transaction] {
	return func(yield func(domain.Transaction) bool) {
		var stack []*node
		n := t.root
		for n != nil || len(stack) > 0 {
			for n != nil {
				stack = append(stack, n)
				n = n.left
			}
			n = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n.tx) {
				return
			}
			n = n.right
		}
	}
}

// Clear releases every node and returns how many were released.
func (t *Tree) Clear() int {
	released := release(t.root)
	t.root = nil
	t.size = 0
	return released
}

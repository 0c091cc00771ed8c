package index

import "github.com/vanshika/fintrace/txindex/internal/domain"

// node owns its two children exclusively; there are no parent links.
type node struct {
	tx          domain.Transaction
	left, right *node
	height      int
}

func newNode(tx domain.Transaction) *node {
	return &node{tx: tx, height: 1}
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

// balance is height(left) - height(right).
func balance(n *node) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func (n *node) fix() {
	n.height = 1 + max(height(n.left), height(n.right))
}

// rotateRight promotes y.left. Only the heights of y and the new root change.
func (t *Tree) rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	y.fix()
	x.fix()
	t.observer.Rotated(RotateRight)
	return x
}

// rotateLeft promotes x.right. Only the heights of x and the new root change.
func (t *Tree) rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	x.fix()
	y.fix()
	t.observer.Rotated(RotateLeft)
	return y
}

// rebalanceAfterDelete restores the balance bound at n using the heavy
// child's balance factor as the tie-break. A child balance of zero is
// handled as the single-rotation case.
func (t *Tree) rebalanceAfterDelete(n *node) *node {
	switch bf := balance(n); {
	case bf > 1:
		if balance(n.left) < 0 {
			n.left = t.rotateLeft(n.left)
		}
		return t.rotateRight(n)
	case bf < -1:
		if balance(n.right) > 0 {
			n.right = t.rotateRight(n.right)
		}
		return t.rotateLeft(n)
	}
	return n
}

func minNode(n *node) *node {
	for n.left != nil {
		n = n.left
	}
	return n
}

// release detaches every node below and including n in post-order and
// returns how many nodes were released.
func release(n *node) int {
	if n == nil {
		return 0
	}
	released := release(n.left) + release(n.right)
	n.left, n.right = nil, nil
	return released + 1
}

package index

import (
	"errors"
	"fmt"
)

// ErrInvariant is wrapped by every error returned from Check.
var ErrInvariant = errors.New("index invariant violated")

// Check walks the whole tree and verifies key ordering, cached heights, the
// AVL balance bound and the record count.
func (t *Tree) Check() error {
	count, _, err := check(t.root, nil, nil)
	if err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("%w: size %d but %d nodes reachable", ErrInvariant, t.size, count)
	}
	if t.capacity > 0 && count > t.capacity {
		return fmt.Errorf("%w: %d records exceed capacity %d", ErrInvariant, count, t.capacity)
	}
	return nil
}

func check(n *node, lo, hi *string) (int, int, error) {
	if n == nil {
		return 0, 0, nil
	}
	id := n.tx.ID
	if lo != nil && id <= *lo {
		return 0, 0, fmt.Errorf("%w: key %q not greater than %q", ErrInvariant, id, *lo)
	}
	if hi != nil && id >= *hi {
		return 0, 0, fmt.Errorf("%w: key %q not less than %q", ErrInvariant, id, *hi)
	}

	lc, lh, err := check(n.left, lo, &id)
	if err != nil {
		return 0, 0, err
	}
	rc, rh, err := check(n.right, &id, hi)
	if err != nil {
		return 0, 0, err
	}

	if want := 1 + max(lh, rh); n.height != want {
		return 0, 0, fmt.Errorf("%w: key %q caches height %d, want %d", ErrInvariant, id, n.height, want)
	}
	if bf := lh - rh; bf > 1 || bf < -1 {
		return 0, 0, fmt.Errorf("%w: key %q has balance factor %d", ErrInvariant, id, bf)
	}
	return lc + rc + 1, n.height, nil
}

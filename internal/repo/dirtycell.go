package repo

import (
	"errors"
	"sync"

	"github.com/jmarsh/jjcore/internal/model"
)

// ErrReentrantEnsureClean is returned when EnsureClean is called again from
// within the normalizer callback it is already running (spec §4.G: "It is an
// error to re-enter ensure_clean from within a read callback.").
var ErrReentrantEnsureClean = errors.New("repo: ensure_clean re-entered from its own callback")

// dirtyCell holds the working View behind the §4.G dirty-cell contract:
// reads return the cached value while clean; direct mutation through
// ViewMut leaves the cell clean (the caller asserts the mutation preserves
// the head invariant, or will clean it up itself); mutations that may break
// the head invariant call MarkDirty, deferring normalization to the next
// EnsureClean call.
type dirtyCell struct {
	mu      sync.Mutex
	view    *model.View
	dirty   bool
	entered bool
}

func newDirtyCell(v *model.View) *dirtyCell {
	return &dirtyCell{view: v}
}

// ViewMut returns the current view for direct, cell-preserving mutation.
func (c *dirtyCell) ViewMut() *model.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Replace swaps in a wholly new view and marks the cell dirty (used by
// merge_view, whose result must still pass through head-invariant
// normalization before being observed).
func (c *dirtyCell) Replace(v *model.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
	c.dirty = true
}

// MarkDirty flags the cell for normalization on the next EnsureClean.
func (c *dirtyCell) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
}

// EnsureClean runs normalize against the held view if dirty, then returns
// it. normalize must not itself call EnsureClean; doing so returns
// ErrReentrantEnsureClean.
func (c *dirtyCell) EnsureClean(normalize func(*model.View)) (*model.View, error) {
	c.mu.Lock()
	if c.entered {
		c.mu.Unlock()
		return nil, ErrReentrantEnsureClean
	}
	if !c.dirty {
		v := c.view
		c.mu.Unlock()
		return v, nil
	}
	c.entered = true
	v := c.view
	c.mu.Unlock()

	normalize(v)

	c.mu.Lock()
	c.entered = false
	c.dirty = false
	c.mu.Unlock()
	return v, nil
}

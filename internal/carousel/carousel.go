// Package carousel tracks the displayed position within an image sequence and
// whether the displayed image is still loading.
package carousel

import "github.com/couchcryptid/stormview/internal/domain"

// Token identifies one displayed image: the attachment it belongs to and the
// navigation step that showed it. Load completions carry the token they were
// started with so a late completion cannot settle a newer image.
type Token struct {
	attachment uint64
	move       uint64
	Index      int
}

// Controller owns the current index into a sequence. It is not safe for
// concurrent use; it belongs to the goroutine that renders it.
type Controller struct {
	sequence   domain.ImageSequence
	index      int
	pending    bool
	broken     map[int]bool
	attachment uint64
	move       uint64
}

// New returns a controller with an empty sequence attached.
func New() *Controller {
	return &Controller{broken: make(map[int]bool)}
}

// Attach replaces the sequence, resets the index to 0 and marks the image
// pending, even when the new sequence has the same content as the old one.
func (c *Controller) Attach(seq domain.ImageSequence) {
	c.sequence = seq
	c.index = 0
	c.pending = true
	c.broken = make(map[int]bool)
	c.attachment++
	c.move++
}

// Next advances with wraparound. It is a no-op for sequences of length 0 or 1.
func (c *Controller) Next() {
	n := c.sequence.Len()
	if n <= 1 {
		return
	}
	c.show((c.index + 1) % n)
}

// Previous retreats with wraparound. It is a no-op for sequences of length 0 or 1.
func (c *Controller) Previous() {
	n := c.sequence.Len()
	if n <= 1 {
		return
	}
	c.show((c.index - 1 + n) % n)
}

// JumpTo sets the index. Requests outside [0, Len) are ignored.
func (c *Controller) JumpTo(i int) {
	if i < 0 || i >= c.sequence.Len() {
		return
	}
	c.show(i)
}

func (c *Controller) show(i int) {
	c.index = i
	c.pending = true
	c.move++
}

// MarkLoaded clears the pending flag for the displayed image.
func (c *Controller) MarkLoaded() {
	c.pending = false
}

// MarkErrored clears the pending flag and flags the displayed image as broken
// until the next Attach. The sequence itself is unchanged.
func (c *Controller) MarkErrored() {
	c.pending = false
	if c.sequence.Len() > 0 {
		c.broken[c.index] = true
	}
}

// Token returns the token of the displayed image.
func (c *Controller) Token() Token {
	return Token{attachment: c.attachment, move: c.move, Index: c.index}
}

// Settle applies a load completion for tok. It reports false and changes
// nothing when the user has since attached a new sequence or navigated away.
func (c *Controller) Settle(tok Token, ok bool) bool {
	if tok.attachment != c.attachment || tok.move != c.move {
		return false
	}
	if ok {
		c.MarkLoaded()
	} else {
		c.MarkErrored()
	}
	return true
}

// Sequence returns the attached sequence.
func (c *Controller) Sequence() domain.ImageSequence { return c.sequence }

// Index returns the displayed position.
func (c *Controller) Index() int { return c.index }

// Len returns the length of the attached sequence.
func (c *Controller) Len() int { return c.sequence.Len() }

// Pending reports whether the displayed image is still loading. It is always
// false for an empty sequence, where there is nothing to load.
func (c *Controller) Pending() bool { return c.pending && c.sequence.Len() > 0 }

// Current returns the displayed locator and false when the sequence is empty.
func (c *Controller) Current() (domain.ImageLocator, bool) {
	return c.sequence.At(c.index)
}

// Broken reports whether the image at position i failed to render in this attachment.
func (c *Controller) Broken(i int) bool { return c.broken[i] }

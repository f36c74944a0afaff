package buffer

import (
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// clockReplacer is the second-chance policy. It works directly on the frame
// descriptors: reference bits are set by the buffer manager on every access
// and cleared here as the hand sweeps past.
type clockReplacer struct {
	table *frameTable
	hand  util.FrameID
}

var _ Replacer = (*clockReplacer)(nil)

func newClockReplacer(t *frameTable) *clockReplacer {
	return &clockReplacer{
		table: t,
		// first advance lands on frame 0
		hand: util.FrameID(t.size() - 1),
	}
}

// Victim sweeps from the frame after the hand. A free frame is taken at once;
// a referenced frame loses its reference bit and is passed over; a pinned
// frame is passed over; the first unpinned, unreferenced frame is the victim.
func (c *clockReplacer) Victim() (util.FrameID, error) {
	n := c.table.size()
	if c.allPinned() {
		return util.InvalidFrame, util.ErrBufferExceeded
	}

	pinned := 0
	c.advance()
	for {
		d := c.table.desc(c.hand)
		switch {
		case !d.valid:
			return c.hand, nil
		case d.refBit:
			d.refBit = false
			if d.pinCount == 0 {
				pinned = 0
			}
		case d.pinCount > 0:
			pinned++
			if pinned >= n {
				return util.InvalidFrame, util.ErrBufferExceeded
			}
		default:
			return c.hand, nil
		}
		c.advance()
	}
}

func (c *clockReplacer) Pinned(util.FrameID) {}

func (c *clockReplacer) Unpinned(util.FrameID) {}

func (c *clockReplacer) Reset(util.FrameID) {}

func (c *clockReplacer) advance() {
	c.hand = (c.hand + 1) % util.FrameID(c.table.size())
}

// allPinned is checked before the sweep so a failed request leaves the hand
// and every reference bit where they were.
func (c *clockReplacer) allPinned() bool {
	for i := range c.table.descs {
		d := &c.table.descs[i]
		if !d.valid || d.pinCount == 0 {
			return false
		}
	}
	return true
}

package buffer

import (
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// Replacer defines the contract for page replacement policies.
type Replacer interface {
	// Victim returns a frame for a new page: either a free frame or an
	// unpinned occupant the caller must evict. It returns
	// util.ErrBufferExceeded, and changes nothing, when every frame is pinned.
	Victim() (util.FrameID, error)
	// Pinned reports that a frame gained a pin.
	Pinned(frame util.FrameID)
	// Unpinned reports that a frame's pin count dropped to zero.
	Unpinned(frame util.FrameID)
	// Reset reports that a frame went back to the free state.
	Reset(frame util.FrameID)
}

func newReplacer(policy string, t *frameTable) (Replacer, error) {
	switch policy {
	case "", util.ReplacerClock:
		return newClockReplacer(t), nil
	case util.ReplacerLRU:
		return newLRUReplacer(t)
	default:
		return nil, util.ErrUnknownReplacer
	}
}

package buffer

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// lruReplacer hands out free frames lowest index first, then the frame whose
// pin count reached zero longest ago. The cache holds exactly the valid,
// unpinned frames.
type lruReplacer struct {
	table *frameTable
	cache *lru.Cache
}

var _ Replacer = (*lruReplacer)(nil)

func newLRUReplacer(t *frameTable) (*lruReplacer, error) {
	c, err := lru.New(t.size())
	if err != nil {
		return nil, fmt.Errorf("[lru] [new] %w", err)
	}
	return &lruReplacer{table: t, cache: c}, nil
}

func (lr *lruReplacer) Victim() (util.FrameID, error) {
	for i := range lr.table.descs {
		if !lr.table.descs[i].valid {
			return util.FrameID(i), nil
		}
	}

	// oldest first
	keys := lr.cache.Keys()
	if len(keys) == 0 {
		return util.InvalidFrame, util.ErrBufferExceeded
	}
	return keys[0].(util.FrameID), nil
}

func (lr *lruReplacer) Pinned(frame util.FrameID) {
	lr.cache.Remove(frame)
}

func (lr *lruReplacer) Unpinned(frame util.FrameID) {
	lr.cache.Add(frame, struct{}{})
}

func (lr *lruReplacer) Reset(frame util.FrameID) {
	lr.cache.Remove(frame)
}

func (lr *lruReplacer) evictable() int {
	return lr.cache.Len()
}

package buffer

import (
	"testing"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufMgrLRU(t *testing.T) {
	bm := newTestMgr(t, 3, WithReplacer(util.ReplacerLRU))

	lr, ok := bm.replacer.(*lruReplacer)
	require.True(t, ok, "lru policy selected")
	assert.Equal(t, 0, lr.evictable(), "nothing evictable in an empty pool")
}

func TestLRUEviction(t *testing.T) {
	f := seededFile("L", 10)
	bm := newTestMgr(t, 3, WithReplacer(util.ReplacerLRU))
	lr := bm.replacer.(*lruReplacer)

	for i := util.PageID(0); i < 3; i++ {
		h, err := bm.FetchPage(f, i)
		require.NoError(t, err, "fetch page %d", i)
		assert.Equal(t, util.FrameID(i), h.Frame(), "free frames are used lowest first")
	}

	t.Run("AllPinned", func(t *testing.T) {
		_, err := bm.FetchPage(f, 5)
		assert.ErrorIs(t, err, util.ErrBufferExceeded)
		checkInvariants(t, bm)
	})

	t.Run("LeastRecentlyUnpinned", func(t *testing.T) {
		for _, pageNo := range []util.PageID{1, 0, 2} {
			require.NoError(t, bm.UnpinPage(f, pageNo, false))
		}
		assert.Equal(t, 3, lr.evictable())

		h, err := bm.FetchPage(f, 3)
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(1), h.Frame(), "page 1 was unpinned first")
		_, ok := bm.dir.lookup(PageKey{File: f.ID(), PageNo: 1})
		assert.False(t, ok, "page 1 evicted")
		assert.Equal(t, 2, lr.evictable())
	})

	t.Run("HitLeavesCandidates", func(t *testing.T) {
		h0, err := bm.FetchPage(f, 0)
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(0), h0.Frame(), "page 0 still resident")
		assert.Equal(t, 1, lr.evictable(), "pinned page is no candidate")

		h, err := bm.FetchPage(f, 4)
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(2), h.Frame(), "page 2 is the only candidate")
		checkInvariants(t, bm)
	})

	t.Run("DisposeFreesFrame", func(t *testing.T) {
		require.NoError(t, bm.DisposePage(f, 0))
		assert.Equal(t, 0, lr.evictable())

		h, err := bm.FetchPage(f, 6)
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(0), h.Frame(), "disposed frame is free again")
		checkInvariants(t, bm)
	})
}

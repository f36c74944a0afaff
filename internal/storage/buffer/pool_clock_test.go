package buffer

import (
	"testing"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// occupy marks frame as holding a page of f with the given pin count and reference bit.
func occupy(tbl *frameTable, f file.Filer, frame util.FrameID, pins int32, ref bool) {
	d := tbl.desc(frame)
	d.set(f, util.PageID(frame))
	d.pinCount = pins
	d.refBit = ref
}

func TestNewClockReplacer(t *testing.T) {
	tbl := newFrameTable(4)
	c := newClockReplacer(tbl)

	assert.Equal(t, util.FrameID(3), c.hand, "hand starts on the last frame")

	frame, err := c.Victim()
	require.NoError(t, err)
	assert.Equal(t, util.FrameID(0), frame, "first request lands on frame 0")
	assert.Equal(t, util.FrameID(0), c.hand)
}

func TestClockVictim(t *testing.T) {
	f := file.NewMemFile("clock")

	t.Run("FreeFrameFirst", func(t *testing.T) {
		tbl := newFrameTable(3)
		c := newClockReplacer(tbl)
		occupy(tbl, f, 0, 1, true)

		frame, err := c.Victim()
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(1), frame, "pinned frame 0 is passed, free frame 1 taken")
		assert.False(t, tbl.desc(0).refBit, "frame 0 lost its reference bit on the way")

		occupy(tbl, f, 0, 0, true)
		occupy(tbl, f, 1, 1, true)
		frame, err = c.Victim()
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(2), frame, "free frame is taken without eviction")
		assert.True(t, tbl.desc(0).refBit, "frame 0 was never inspected")
	})

	t.Run("SecondChance", func(t *testing.T) {
		tbl := newFrameTable(3)
		c := newClockReplacer(tbl)
		for i := 0; i < 3; i++ {
			occupy(tbl, f, util.FrameID(i), 0, true)
		}

		frame, err := c.Victim()
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(0), frame, "every frame gets one second chance, then frame 0 goes")
		for i := 0; i < 3; i++ {
			assert.False(t, tbl.desc(util.FrameID(i)).refBit, "reference bit of frame %d cleared", i)
		}

		frame, err = c.Victim()
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(1), frame, "hand keeps its position across calls")
	})

	t.Run("SkipsPinned", func(t *testing.T) {
		tbl := newFrameTable(3)
		c := newClockReplacer(tbl)
		occupy(tbl, f, 0, 1, false)
		occupy(tbl, f, 1, 2, false)
		occupy(tbl, f, 2, 0, false)

		frame, err := c.Victim()
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(2), frame)
	})

	t.Run("PinnedAndReferenced", func(t *testing.T) {
		tbl := newFrameTable(2)
		c := newClockReplacer(tbl)
		occupy(tbl, f, 0, 1, false)
		occupy(tbl, f, 1, 0, true)

		frame, err := c.Victim()
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(1), frame, "unpinned frame wins after its second chance")
	})

	t.Run("AllPinned", func(t *testing.T) {
		tbl := newFrameTable(3)
		c := newClockReplacer(tbl)
		occupy(tbl, f, 0, 1, true)
		occupy(tbl, f, 1, 1, false)
		occupy(tbl, f, 2, 3, true)
		before := append([]frameDesc(nil), tbl.descs...)
		hand := c.hand

		_, err := c.Victim()
		assert.ErrorIs(t, err, util.ErrBufferExceeded)
		assert.Equal(t, hand, c.hand, "hand untouched")
		assert.Equal(t, before, tbl.descs, "descriptors untouched")
	})
}

func TestBufMgrClockEviction(t *testing.T) {
	f := seededFile("A", 10)

	t.Run("EvictsOnlyUnpinned", func(t *testing.T) {
		bm := newTestMgr(t, 3)
		for i := util.PageID(1); i <= 3; i++ {
			h, err := bm.FetchPage(f, i)
			require.NoError(t, err, "fetch page %d", i)
			assert.Equal(t, util.FrameID(i-1), h.Frame(), "page %d goes to frame %d", i, i-1)
		}
		require.NoError(t, bm.UnpinPage(f, 1, false))

		h4, err := bm.FetchPage(f, 4)
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(0), h4.Frame(), "page 4 takes the only unpinned frame")
		assert.Equal(t, pageText("A", 4), string(h4.Bytes()[:len(pageText("A", 4))]))

		_, ok := bm.dir.lookup(PageKey{File: f.ID(), PageNo: 1})
		assert.False(t, ok, "page 1 evicted from the directory")
		frame, ok := bm.dir.lookup(PageKey{File: f.ID(), PageNo: 4})
		assert.True(t, ok)
		assert.Equal(t, util.FrameID(0), frame)
		checkInvariants(t, bm)
	})

	t.Run("VictimFrameIsReset", func(t *testing.T) {
		bm := newTestMgr(t, 1)
		h, err := bm.FetchPage(f, 0)
		require.NoError(t, err)
		h.MarkDirty()
		require.NoError(t, h.Release())
		writes := f.Writes(0)

		frame, err := bm.allocFrame()
		require.NoError(t, err)
		assert.Equal(t, util.FrameID(0), frame)

		d := bm.table.desc(frame)
		assert.False(t, d.valid, "victim frame is free")
		assert.False(t, d.dirty, "victim frame is clean")
		assert.Zero(t, d.pinCount)
		assert.Equal(t, writes+1, f.Writes(0), "one write back before reuse")
		assert.Equal(t, 0, bm.dir.size())
	})
}

package buffer

import (
	"testing"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageHandle(t *testing.T) {
	t.Run("ReleaseHandsOverDirty", func(t *testing.T) {
		f := seededFile("A", 2)
		bm := newTestMgr(t, 2)

		h, err := bm.FetchPage(f, 0)
		require.NoError(t, err)
		copy(h.Bytes(), "edited")
		h.MarkDirty()
		assert.False(t, bm.table.desc(h.Frame()).dirty, "dirty is handed over on release")

		require.NoError(t, h.Release())
		d := bm.table.desc(h.Frame())
		assert.True(t, d.dirty)
		assert.Zero(t, d.pinCount)
		assert.Nil(t, h.Page(), "released handle")
		assert.Nil(t, h.Bytes())
	})

	t.Run("DoubleRelease", func(t *testing.T) {
		f := seededFile("A", 2)
		bm := newTestMgr(t, 2)

		h1, err := bm.FetchPage(f, 1)
		require.NoError(t, err)
		h2, err := bm.FetchPage(f, 1)
		require.NoError(t, err)

		require.NoError(t, h1.Release())
		require.NoError(t, h1.Release(), "second release does nothing")
		assert.Equal(t, int32(1), bm.table.desc(h2.Frame()).pinCount, "h2 still holds its pin")
		assert.NotNil(t, h2.Page())

		require.NoError(t, h2.Release())
		assert.Zero(t, bm.table.desc(h2.Frame()).pinCount)
	})

	t.Run("StaleAfterFlush", func(t *testing.T) {
		f := seededFile("A", 2)
		bm := newTestMgr(t, 1)

		h, err := bm.FetchPage(f, 0)
		require.NoError(t, err)
		require.NoError(t, bm.UnpinPage(f, 0, false))
		require.NoError(t, bm.FlushFile(f))

		// the frame is reused for another page before the stale release
		h2, err := bm.FetchPage(f, 1)
		require.NoError(t, err)
		require.Equal(t, h.Frame(), h2.Frame())

		assert.Nil(t, h.Page())
		assert.NoError(t, h.Release())
		assert.Equal(t, int32(1), bm.table.desc(h2.Frame()).pinCount, "new occupant keeps its pin")
		checkInvariants(t, bm)
	})

	t.Run("AfterClose", func(t *testing.T) {
		f := seededFile("A", 1)
		bm := newTestMgr(t, 1)

		h, err := bm.FetchPage(f, 0)
		require.NoError(t, err)
		h.MarkDirty()
		require.NoError(t, bm.Close())

		assert.Nil(t, h.Page())
		assert.NoError(t, h.Release())
		assert.Zero(t, f.Writes(0), "handle dirt never reached the manager")
	})

	t.Run("Accessors", func(t *testing.T) {
		f := seededFile("A", 3)
		bm := newTestMgr(t, 2)

		h, err := bm.FetchPage(f, 2)
		require.NoError(t, err)
		assert.Equal(t, util.PageID(2), h.PageNo())
		assert.Equal(t, util.FrameID(0), h.Frame())
		assert.Equal(t, util.PageID(2), h.Page().Header.PageID)
	})
}

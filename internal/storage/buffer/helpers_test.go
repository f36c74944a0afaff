package buffer

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestMgr(t *testing.T, frames int, opts ...Option) *BufMgr {
	t.Helper()
	bm, err := NewBufMgr(frames, append([]Option{WithLogger(quietLogger)}, opts...)...)
	require.NoError(t, err, "create BufMgr")
	return bm
}

// seededFile returns a MemFile holding pages [0, pages) with readable contents.
func seededFile(name string, pages int) *file.MemFile {
	m := file.NewMemFile(name)
	for i := 0; i < pages; i++ {
		m.Seed(util.PageID(i), []byte(pageText(name, util.PageID(i))))
	}
	return m
}

func pageText(name string, pageNo util.PageID) string {
	return fmt.Sprintf("%s page %d", name, pageNo)
}

// checkInvariants asserts the frame-table/directory invariants.
func checkInvariants(t *testing.T, bm *BufMgr) {
	t.Helper()
	bm.mu.Lock()
	defer bm.mu.Unlock()

	seen := make(map[PageKey]util.FrameID)
	for i := range bm.table.descs {
		d := &bm.table.descs[i]
		frame := util.FrameID(i)
		if !d.valid {
			require.Zero(t, d.pinCount, "free frame %d has pins", i)
			require.False(t, d.dirty, "free frame %d is dirty", i)
			continue
		}
		key := d.key()
		prev, dup := seen[key]
		require.False(t, dup, "%v in frames %d and %d", key, prev, i)
		seen[key] = frame

		got, ok := bm.dir.lookup(key)
		require.True(t, ok, "valid frame %d missing from directory", i)
		require.Equal(t, frame, got, "directory maps %v elsewhere", key)
	}
	require.Equal(t, len(seen), bm.dir.size(), "directory has entries for free frames")
}

package buffer

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// PageKey identifies a page across every file the manager serves.
type PageKey struct {
	File   util.FileID
	PageNo util.PageID
}

func (k PageKey) String() string {
	return fmt.Sprintf("(file %d, page %d)", k.File, k.PageNo)
}

// pageDirectory maps resident pages to their frame. A lookup miss is the
// normal cache-miss signal; inserting a present key or removing an absent one
// means the frame table and the directory disagree.
type pageDirectory struct {
	m *xsync.MapOf[PageKey, util.FrameID]
}

func newPageDirectory(capacity int) *pageDirectory {
	return &pageDirectory{
		m: xsync.NewMapOf[PageKey, util.FrameID](xsync.WithPresize(capacity)),
	}
}

func (d *pageDirectory) insert(key PageKey, frame util.FrameID) error {
	if prev, loaded := d.m.LoadOrStore(key, frame); loaded {
		return fmt.Errorf("[directory] [insert] %v already at frame %d: %w", key, prev, util.ErrDuplicateEntry)
	}
	return nil
}

func (d *pageDirectory) remove(key PageKey) error {
	if _, ok := d.m.LoadAndDelete(key); !ok {
		return fmt.Errorf("[directory] [remove] %v: %w", key, util.ErrEntryNotFound)
	}
	return nil
}

func (d *pageDirectory) lookup(key PageKey) (util.FrameID, bool) {
	return d.m.Load(key)
}

func (d *pageDirectory) size() int {
	return d.m.Size()
}

func (d *pageDirectory) clear() {
	d.m.Clear()
}

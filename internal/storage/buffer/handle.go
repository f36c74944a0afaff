package buffer

import (
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// PageHandle is one pin on a resident page. The page it exposes is the
// frame's own storage, not a copy, and is only reachable until Release or
// until the frame stops holding this residency of the page (dispose, flush,
// close).
//
// A handle is not safe for concurrent use by multiple goroutines.
type PageHandle struct {
	bm       *BufMgr
	frame    util.FrameID
	gen      uint64
	pageNo   util.PageID
	dirty    bool
	released bool
}

func (bm *BufMgr) newHandle(frame util.FrameID) *PageHandle {
	d := bm.table.desc(frame)
	return &PageHandle{
		bm:     bm,
		frame:  frame,
		gen:    d.gen,
		pageNo: d.pageNo,
	}
}

func (h *PageHandle) PageNo() util.PageID { return h.pageNo }

func (h *PageHandle) Frame() util.FrameID { return h.frame }

// Page returns the frame's page, or nil once the handle is no longer live.
func (h *PageHandle) Page() *page.Page {
	if h.released {
		return nil
	}

	h.bm.mu.Lock()
	defer h.bm.mu.Unlock()
	if !h.liveLocked() {
		return nil
	}
	return h.bm.table.page(h.frame)
}

// Bytes is the data area of Page.
func (h *PageHandle) Bytes() []byte {
	p := h.Page()
	if p == nil {
		return nil
	}
	return p.Data[:]
}

// MarkDirty records that the page was modified; the dirty bit is handed to
// the manager on Release.
func (h *PageHandle) MarkDirty() {
	h.dirty = true
}

// Release drops the handle's pin. Releasing twice, or releasing a handle
// whose page was disposed or flushed out in the meantime, does nothing.
func (h *PageHandle) Release() error {
	if h.released {
		return nil
	}
	h.released = true

	h.bm.mu.Lock()
	defer h.bm.mu.Unlock()
	if !h.liveLocked() {
		return nil
	}
	return h.bm.unpinFrame("Release", h.frame, h.dirty)
}

func (h *PageHandle) liveLocked() bool {
	if h.bm.closed {
		return false
	}
	d := h.bm.table.desc(h.frame)
	return d.valid && d.gen == h.gen
}

package buffer

import (
	"fmt"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// frameDesc is the bookkeeping for one buffer frame.
//
// A free frame (valid == false) has no file, no pins and is clean. A pinned
// frame is always valid.
type frameDesc struct {
	file     file.Filer
	pageNo   util.PageID
	pinCount int32
	dirty    bool
	valid    bool
	refBit   bool

	// gen is bumped each time the frame takes a new page, so a handle can
	// tell whether the frame still holds the residency it was issued for.
	gen uint64
}

// set makes the frame hold pageNo of f, pinned once and recently referenced.
func (d *frameDesc) set(f file.Filer, pageNo util.PageID) {
	d.file = f
	d.pageNo = pageNo
	d.pinCount = 1
	d.dirty = false
	d.valid = true
	d.refBit = true
	d.gen++
}

// clear returns the frame to the free state. gen survives.
func (d *frameDesc) clear() {
	d.file = nil
	d.pageNo = 0
	d.pinCount = 0
	d.dirty = false
	d.valid = false
	d.refBit = false
}

func (d *frameDesc) key() PageKey {
	return PageKey{File: d.file.ID(), PageNo: d.pageNo}
}

// frameTable is the frame descriptors plus the page slots they describe,
// index-aligned and allocated once.
type frameTable struct {
	descs []frameDesc
	pages []page.Page
}

func newFrameTable(size int) *frameTable {
	return &frameTable{
		descs: make([]frameDesc, size),
		pages: make([]page.Page, size),
	}
}

func (t *frameTable) size() int {
	return len(t.descs)
}

func (t *frameTable) desc(frame util.FrameID) *frameDesc {
	if frame < 0 || int(frame) >= len(t.descs) {
		panic(fmt.Sprintf("[frame] [desc] frame index out of bound: %d", frame))
	}
	return &t.descs[frame]
}

func (t *frameTable) page(frame util.FrameID) *page.Page {
	if frame < 0 || int(frame) >= len(t.pages) {
		panic(fmt.Sprintf("[frame] [page] frame index out of bound: %d", frame))
	}
	return &t.pages[frame]
}

func (t *frameTable) validFrames() int {
	n := 0
	for i := range t.descs {
		if t.descs[i].valid {
			n++
		}
	}
	return n
}

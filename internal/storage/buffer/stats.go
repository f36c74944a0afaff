package buffer

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// FrameState is a copy of one frame descriptor.
type FrameState struct {
	Frame    util.FrameID
	File     string
	FileID   util.FileID
	PageNo   util.PageID
	PinCount int32
	Dirty    bool
	Valid    bool
	RefBit   bool
}

type Snapshot struct {
	Frames      []FrameState
	ValidFrames int
}

// Stats returns current buffer pool statistics
type Stats struct {
	Capacity     int
	ValidFrames  int
	PinnedFrames int
	DirtyFrames  int
	Hits         uint64
	Misses       uint64
	Evictions    uint64
	Writebacks   uint64
}

func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot copies every frame descriptor. It never changes the pool.
func (bm *BufMgr) Snapshot() Snapshot {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return Snapshot{}
	}

	snap := Snapshot{Frames: make([]FrameState, bm.table.size())}
	for i := range bm.table.descs {
		d := &bm.table.descs[i]
		fs := FrameState{
			Frame:    util.FrameID(i),
			PageNo:   d.pageNo,
			PinCount: d.pinCount,
			Dirty:    d.dirty,
			Valid:    d.valid,
			RefBit:   d.refBit,
		}
		if d.file != nil {
			fs.File = d.file.Name()
			fs.FileID = d.file.ID()
		}
		if d.valid {
			snap.ValidFrames++
		}
		snap.Frames[i] = fs
	}
	return snap
}

func (bm *BufMgr) Stats() Stats {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	s := Stats{
		Hits:       bm.hits,
		Misses:     bm.misses,
		Evictions:  bm.evictions,
		Writebacks: bm.writebacks,
	}
	if bm.closed {
		return s
	}

	s.Capacity = bm.table.size()
	for i := range bm.table.descs {
		d := &bm.table.descs[i]
		if d.valid {
			s.ValidFrames++
		}
		if d.pinCount > 0 {
			s.PinnedFrames++
		}
		if d.dirty {
			s.DirtyFrames++
		}
	}
	return s
}

// Dump writes one line per frame followed by the number of valid frames.
func (bm *BufMgr) Dump(w io.Writer) error {
	snap := bm.Snapshot()

	size := uint64(len(snap.Frames)) * util.PageSize
	if _, err := fmt.Fprintf(w, "Frames:%d Pool:%s\n", len(snap.Frames), humanize.IBytes(size)); err != nil {
		return err
	}
	for _, fs := range snap.Frames {
		if _, err := fmt.Fprintf(w, "FrameNo:%d file:%q pageNo:%d valid:%t pinCnt:%d dirty:%t refbit:%t\n",
			fs.Frame, fs.File, fs.PageNo, fs.Valid, fs.PinCount, fs.Dirty, fs.RefBit); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total Number of Valid Frames:%d\n", snap.ValidFrames)
	return err
}

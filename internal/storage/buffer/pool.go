package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

var logPrefix = "bufmgr: "

// BufMgr caches pages of any number of files in a fixed set of frames.
//
// Every public method runs under one manager-wide mutex, so the directory,
// the frame table and the replacer always change together. Pins are the
// cooperative contract that keeps a frame resident: a page stays in its frame
// until every FetchPage/AllocPage has been matched by an unpin.
type BufMgr struct {
	mu       sync.Mutex
	table    *frameTable
	dir      *pageDirectory
	replacer Replacer
	logger   *slog.Logger
	closed   bool

	hits       uint64
	misses     uint64
	evictions  uint64
	writebacks uint64
}

type config struct {
	logger   *slog.Logger
	replacer string
}

// Option configures a BufMgr.
type Option func(*config)

func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithReplacer picks the replacement policy: util.ReplacerClock (default) or util.ReplacerLRU.
func WithReplacer(policy string) Option {
	return func(c *config) { c.replacer = policy }
}

func NewBufMgr(numFrames int, opts ...Option) (*BufMgr, error) {
	if numFrames <= 0 {
		return nil, fmt.Errorf("[bufmgr] [new] %d frames: %w", numFrames, util.ErrInvalidPoolSize)
	}

	cfg := config{logger: slog.Default(), replacer: util.ReplacerClock}
	for _, opt := range opts {
		opt(&cfg)
	}

	table := newFrameTable(numFrames)
	replacer, err := newReplacer(cfg.replacer, table)
	if err != nil {
		return nil, fmt.Errorf("[bufmgr] [new] replacer %q: %w", cfg.replacer, err)
	}

	return &BufMgr{
		table:    table,
		dir:      newPageDirectory(numFrames),
		replacer: replacer,
		logger:   cfg.logger,
	}, nil
}

// NewBufMgrFromOptions builds a manager from loaded options.
func NewBufMgrFromOptions(o util.Options, logger *slog.Logger) (*BufMgr, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return NewBufMgr(o.BufferPoolSize, WithReplacer(o.Replacer), WithLogger(logger))
}

func (bm *BufMgr) NumFrames() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.closed {
		return 0
	}
	return bm.table.size()
}

// FetchPage pins pageNo of f, reading it from f if it is not resident.
// The handle aliases the frame; release it once done with the page.
func (bm *BufMgr) FetchPage(f file.Filer, pageNo util.PageID) (*PageHandle, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil, util.ErrClosed
	}

	key := PageKey{File: f.ID(), PageNo: pageNo}
	if frame, ok := bm.dir.lookup(key); ok {
		d := bm.table.desc(frame)
		d.refBit = true
		d.pinCount++
		bm.replacer.Pinned(frame)
		bm.hits++

		bm.logger.Debug(logPrefix+"hit",
			"file", f.Name(),
			"pageNo", pageNo,
			"frame", frame,
			"pinCount", d.pinCount)
		return bm.newHandle(frame), nil
	}

	bm.misses++
	frame, err := bm.allocFrame()
	if err != nil {
		return nil, bm.allocError("FetchPage", f, pageNo, err)
	}

	p, err := f.ReadPage(pageNo)
	if err != nil {
		return nil, fmt.Errorf("[bufmgr] [FetchPage] read page %d of %s: %w", pageNo, f.Name(), err)
	}

	*bm.table.page(frame) = *p
	if err := bm.dir.insert(key, frame); err != nil {
		return nil, err
	}
	bm.table.desc(frame).set(f, pageNo)
	bm.replacer.Pinned(frame)

	bm.logger.Debug(logPrefix+"miss, page loaded",
		"file", f.Name(),
		"pageNo", pageNo,
		"frame", frame)
	return bm.newHandle(frame), nil
}

// UnpinPage drops one pin of pageNo. Unpinning a page that is not resident
// is a no-op. dirty only ever sets the dirty bit.
func (bm *BufMgr) UnpinPage(f file.Filer, pageNo util.PageID, dirty bool) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return util.ErrClosed
	}

	frame, ok := bm.dir.lookup(PageKey{File: f.ID(), PageNo: pageNo})
	if !ok {
		bm.logger.Debug(logPrefix+"unpin ignored, page not resident", "file", f.Name(), "pageNo", pageNo)
		return nil
	}

	return bm.unpinFrame("UnpinPage", frame, dirty)
}

// AllocPage creates a new page in f and pins it in a frame.
//
// The frame is secured before the file grows, so a full pool never leaves an
// unreferenced page behind in f.
func (bm *BufMgr) AllocPage(f file.Filer) (util.PageID, *PageHandle, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return 0, nil, util.ErrClosed
	}

	frame, err := bm.allocFrame()
	if err != nil {
		return 0, nil, bm.allocError("AllocPage", f, 0, err)
	}

	pageNo, p, err := f.AllocatePage()
	if err != nil {
		return 0, nil, fmt.Errorf("[bufmgr] [AllocPage] allocate in %s: %w", f.Name(), err)
	}

	*bm.table.page(frame) = *p
	if err := bm.dir.insert(PageKey{File: f.ID(), PageNo: pageNo}, frame); err != nil {
		return 0, nil, err
	}
	bm.table.desc(frame).set(f, pageNo)
	bm.replacer.Pinned(frame)

	bm.logger.Debug(logPrefix+"page allocated",
		"file", f.Name(),
		"pageNo", pageNo,
		"frame", frame)
	return pageNo, bm.newHandle(frame), nil
}

// DisposePage drops pageNo from the pool, pinned or dirty alike, and deletes
// it from f. Outstanding handles to the page release as no-ops.
func (bm *BufMgr) DisposePage(f file.Filer, pageNo util.PageID) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return util.ErrClosed
	}

	key := PageKey{File: f.ID(), PageNo: pageNo}
	if frame, ok := bm.dir.lookup(key); ok {
		d := bm.table.desc(frame)
		if d.pinCount > 0 || d.dirty {
			bm.logger.Debug(logPrefix+"disposing page in use",
				"file", f.Name(),
				"pageNo", pageNo,
				"frame", frame,
				"pinCount", d.pinCount,
				"dirty", d.dirty)
		}
		if err := bm.dir.remove(key); err != nil {
			return err
		}
		bm.resetFrame(frame)
	}

	if err := f.DeletePage(pageNo); err != nil {
		return fmt.Errorf("[bufmgr] [DisposePage] delete page %d of %s: %w", pageNo, f.Name(), err)
	}
	return nil
}

// FlushFile writes back and evicts every resident page of f, sweeping frames
// in ascending index order. The first pinned page (util.ErrPagePinned) or
// inconsistent frame (util.ErrBadBuffer) stops the sweep: frames before it
// are already flushed and free, frames after it are untouched.
func (bm *BufMgr) FlushFile(f file.Filer) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return util.ErrClosed
	}

	for i := range bm.table.descs {
		frame := util.FrameID(i)
		d := bm.table.desc(frame)
		if d.file == nil || d.file.ID() != f.ID() {
			continue
		}

		if d.pinCount > 0 {
			return util.NewPageError("FlushFile", f.Name(), d.pageNo, frame, util.ErrPagePinned)
		}
		if !d.valid {
			return util.NewPageError("FlushFile", f.Name(), d.pageNo, frame, util.ErrBadBuffer)
		}

		if err := bm.writeBack(frame); err != nil {
			return fmt.Errorf("[bufmgr] [FlushFile] %w", err)
		}
		if err := bm.dir.remove(d.key()); err != nil {
			return err
		}
		bm.resetFrame(frame)
	}

	bm.logger.Debug(logPrefix+"file flushed", "file", f.Name())
	return nil
}

// FlushPage writes pageNo back if it is resident and dirty. The page stays
// resident and keeps its pins.
func (bm *BufMgr) FlushPage(f file.Filer, pageNo util.PageID) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return util.ErrClosed
	}

	frame, ok := bm.dir.lookup(PageKey{File: f.ID(), PageNo: pageNo})
	if !ok {
		return nil
	}
	if err := bm.writeBack(frame); err != nil {
		return fmt.Errorf("[bufmgr] [FlushPage] %w", err)
	}
	return nil
}

// Close writes back every valid dirty frame, pinned or not, and releases the
// pool. Write failures do not stop the sweep; they are joined and returned.
func (bm *BufMgr) Close() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if bm.closed {
		return nil
	}

	var err error
	for i := range bm.table.descs {
		frame := util.FrameID(i)
		d := bm.table.desc(frame)
		if !d.valid || !d.dirty {
			continue
		}
		if e := bm.writeBack(frame); e != nil {
			bm.logger.Warn(logPrefix+"write back on close failed",
				"file", d.file.Name(),
				"pageNo", d.pageNo,
				"frame", frame,
				"err", e)
			err = errors.Join(err, e)
		}
	}

	bm.dir.clear()
	bm.table = nil
	bm.closed = true
	if err != nil {
		return fmt.Errorf("[bufmgr] [Close] %w", err)
	}
	return nil
}

// ===================== HELPER FUNCTION =====================

// allocFrame asks the replacer for a frame and, if it is occupied, evicts
// the occupant. A dirty victim is written back first; if that write fails
// the victim stays resident and dirty.
func (bm *BufMgr) allocFrame() (util.FrameID, error) {
	frame, err := bm.replacer.Victim()
	if err != nil {
		return util.InvalidFrame, err
	}

	d := bm.table.desc(frame)
	if !d.valid {
		return frame, nil
	}

	wasDirty := d.dirty
	if err := bm.writeBack(frame); err != nil {
		return util.InvalidFrame, fmt.Errorf("[bufmgr] [allocFrame] evict: %w", err)
	}
	if err := bm.dir.remove(d.key()); err != nil {
		return util.InvalidFrame, err
	}

	bm.logger.Debug(logPrefix+"evicted",
		"file", d.file.Name(),
		"pageNo", d.pageNo,
		"frame", frame,
		"dirty", wasDirty)
	bm.resetFrame(frame)
	bm.evictions++
	return frame, nil
}

// writeBack writes a dirty frame to its file and clears dirty on success.
func (bm *BufMgr) writeBack(frame util.FrameID) error {
	d := bm.table.desc(frame)
	if !d.dirty {
		return nil
	}
	if err := d.file.WritePage(d.pageNo, bm.table.page(frame)); err != nil {
		return fmt.Errorf("write back page %d of %s from frame %d: %w", d.pageNo, d.file.Name(), frame, err)
	}
	d.dirty = false
	bm.writebacks++
	return nil
}

func (bm *BufMgr) resetFrame(frame util.FrameID) {
	bm.table.desc(frame).clear()
	bm.replacer.Reset(frame)
}

func (bm *BufMgr) unpinFrame(op string, frame util.FrameID, dirty bool) error {
	d := bm.table.desc(frame)
	if d.pinCount == 0 {
		return util.NewPageError(op, d.file.Name(), d.pageNo, frame, util.ErrPageNotPinned)
	}

	d.pinCount--
	if dirty {
		d.dirty = true
	}
	if d.pinCount == 0 {
		bm.replacer.Unpinned(frame)
	}
	return nil
}

func (bm *BufMgr) allocError(op string, f file.Filer, pageNo util.PageID, err error) error {
	if errors.Is(err, util.ErrBufferExceeded) {
		bm.logger.Debug(logPrefix+"no frame available", "op", op, "file", f.Name())
		return util.NewPageError(op, f.Name(), pageNo, util.InvalidFrame, util.ErrBufferExceeded)
	}
	return err
}

package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

/**
* DiskFile stores fixed-size pages in one OS file, page N at offset N*PageSize.
* Allocation bookkeeping (page count and freed page numbers) lives in a
* msgpack-encoded sidecar next to the data file.
**/
type DiskFile struct {
	mu         sync.Mutex
	id         util.FileID
	path       string
	File       *os.File
	meta       fileMeta
	syncWrites bool
}

type fileMeta struct {
	PageCount uint64        `msgpack:"page_count"`
	Free      []util.PageID `msgpack:"free"` // sorted ascending
}

var _ Filer = (*DiskFile)(nil)

func OpenDiskFile(path string, syncWrites bool) (*DiskFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	df := &DiskFile{
		id:         nextFileID(),
		path:       path,
		File:       f,
		syncWrites: syncWrites,
	}

	if err := df.loadMeta(); err != nil {
		f.Close()
		return nil, fmt.Errorf("load meta: %w", err)
	}

	return df, nil
}

func (df *DiskFile) ID() util.FileID { return df.id }

func (df *DiskFile) Name() string { return df.path }

// PageCount returns how many page numbers were ever handed out, freed ones included.
func (df *DiskFile) PageCount() uint64 {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.meta.PageCount
}

/* READ FILE */
func (df *DiskFile) ReadPage(pageNo util.PageID) (*page.Page, error) {
	df.mu.Lock()
	defer df.mu.Unlock()

	if err := df.checkLive(pageNo); err != nil {
		return nil, err
	}

	buf := make([]byte, util.PageSize)
	if _, err := df.File.ReadAt(buf, df.offset(pageNo)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("[ReadPage] page %d: %w", pageNo, util.ErrPageNotFound)
		}
		return nil, fmt.Errorf("[ReadPage] read page %d: %w", pageNo, err)
	}

	p, err := page.Deserialize(buf)
	if err != nil {
		return nil, fmt.Errorf("[ReadPage] deserialize page %d: %w", pageNo, err)
	}
	if p.Header.IsFree() {
		return nil, fmt.Errorf("[ReadPage] page %d: %w", pageNo, util.ErrPageNotFound)
	}
	if p.Header.PageID != pageNo {
		return nil, fmt.Errorf("[ReadPage] page %d has header id %d: %w", pageNo, p.Header.PageID, util.ErrInvalidPageId)
	}

	return p, nil
}

/* WRITE FILE */
func (df *DiskFile) WritePage(pageNo util.PageID, p *page.Page) error {
	df.mu.Lock()
	defer df.mu.Unlock()

	if err := df.checkLive(pageNo); err != nil {
		return err
	}

	p.Header.PageID = pageNo
	return df.writeLocked(pageNo, p)
}

// AllocatePage reuses the lowest freed page number, or grows the file by one page.
func (df *DiskFile) AllocatePage() (util.PageID, *page.Page, error) {
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.File == nil {
		return 0, nil, util.ErrFileClosed
	}

	prev := df.meta
	var pageNo util.PageID
	if len(df.meta.Free) > 0 {
		pageNo = df.meta.Free[0]
		df.meta.Free = slices.Clone(df.meta.Free[1:])
	} else {
		pageNo = util.PageID(df.meta.PageCount)
		df.meta.PageCount++
	}

	p := &page.Page{Header: page.PageHeader{PageID: pageNo}}
	if err := df.writeLocked(pageNo, p); err != nil {
		df.meta = prev
		return 0, nil, fmt.Errorf("[AllocatePage] %w", err)
	}
	if err := df.saveMeta(); err != nil {
		df.meta = prev
		return 0, nil, fmt.Errorf("[AllocatePage] %w", err)
	}

	return pageNo, p, nil
}

// DeletePage marks the page free on disk and makes its number reusable.
func (df *DiskFile) DeletePage(pageNo util.PageID) error {
	df.mu.Lock()
	defer df.mu.Unlock()

	if err := df.checkLive(pageNo); err != nil {
		return err
	}

	p := &page.Page{Header: page.PageHeader{PageID: pageNo}}
	p.Header.SetFree()
	if err := df.writeLocked(pageNo, p); err != nil {
		return fmt.Errorf("[DeletePage] %w", err)
	}

	idx, _ := slices.BinarySearch(df.meta.Free, pageNo)
	df.meta.Free = slices.Insert(df.meta.Free, idx, pageNo)
	if err := df.saveMeta(); err != nil {
		return fmt.Errorf("[DeletePage] %w", err)
	}

	return nil
}

/**
* CLOSE FUNCTION
**/
func (df *DiskFile) Close() error {
	if df == nil {
		return nil // Idempotent
	}
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.File == nil {
		return nil
	}

	err := df.saveMeta()
	if e := df.File.Sync(); e != nil {
		err = errors.Join(err, fmt.Errorf("sync file: %w", e))
	}
	if e := df.File.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close file: %w", e))
	}
	df.File = nil
	return err
}

// ===================== HELPER FUNCTION =====================
func (df *DiskFile) offset(pageNo util.PageID) int64 {
	return int64(pageNo) * int64(util.PageSize)
}

func (df *DiskFile) checkLive(pageNo util.PageID) error {
	if df.File == nil {
		return util.ErrFileClosed
	}
	if uint64(pageNo) >= df.meta.PageCount {
		return fmt.Errorf("page %d of %d: %w", pageNo, df.meta.PageCount, util.ErrPageNotFound)
	}
	if _, freed := slices.BinarySearch(df.meta.Free, pageNo); freed {
		return fmt.Errorf("page %d is freed: %w", pageNo, util.ErrPageNotFound)
	}
	return nil
}

func (df *DiskFile) writeLocked(pageNo util.PageID, p *page.Page) error {
	if _, err := df.File.WriteAt(p.Serialize(), df.offset(pageNo)); err != nil {
		return fmt.Errorf("write page %d: %w", pageNo, err)
	}
	if df.syncWrites {
		if err := df.File.Sync(); err != nil {
			return fmt.Errorf("sync page %d: %w", pageNo, err)
		}
	}
	return nil
}

func (df *DiskFile) metaPath() string {
	return df.path + ".meta"
}

func (df *DiskFile) loadMeta() error {
	data, err := os.ReadFile(df.metaPath())
	if errors.Is(err, os.ErrNotExist) {
		// no sidecar: every whole page already in the file is live
		info, err := df.File.Stat()
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		df.meta = fileMeta{PageCount: uint64(info.Size() / util.PageSize)}
		return nil
	}
	if err != nil {
		return err
	}

	if err := msgpack.Unmarshal(data, &df.meta); err != nil {
		return fmt.Errorf("decode %s: %w", df.metaPath(), err)
	}
	slices.Sort(df.meta.Free)
	return nil
}

func (df *DiskFile) saveMeta() error {
	data, err := msgpack.Marshal(&df.meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	tmp := df.metaPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o666); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if err := os.Rename(tmp, df.metaPath()); err != nil {
		return fmt.Errorf("rename meta: %w", err)
	}
	return nil
}

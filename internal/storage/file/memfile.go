package file

import (
	"fmt"
	"sync"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// WriteRecord is one WritePage call observed by a MemFile.
type WriteRecord struct {
	PageNo util.PageID
	Data   [page.DATA_SIZE]byte
}

// MemFile is an in-memory Filer. It counts every physical read and write so
// callers can observe exactly what a buffer manager asked of its file.
type MemFile struct {
	mu     sync.Mutex
	id     util.FileID
	name   string
	pages  map[util.PageID]*page.Page
	nextID util.PageID

	reads    map[util.PageID]int
	writes   map[util.PageID]int
	writeLog []WriteRecord
	deletes  []util.PageID

	failReads  error
	failWrites error
}

var _ Filer = (*MemFile)(nil)

func NewMemFile(name string) *MemFile {
	return &MemFile{
		id:     nextFileID(),
		name:   name,
		pages:  make(map[util.PageID]*page.Page),
		reads:  make(map[util.PageID]int),
		writes: make(map[util.PageID]int),
	}
}

func (m *MemFile) ID() util.FileID { return m.id }

func (m *MemFile) Name() string { return m.name }

func (m *MemFile) ReadPage(pageNo util.PageID) (*page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failReads != nil {
		return nil, m.failReads
	}
	p, ok := m.pages[pageNo]
	if !ok {
		return nil, fmt.Errorf("[ReadPage] %s page %d: %w", m.name, pageNo, util.ErrPageNotFound)
	}
	m.reads[pageNo]++

	cp := *p
	return &cp, nil
}

func (m *MemFile) WritePage(pageNo util.PageID, p *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrites != nil {
		return m.failWrites
	}
	if _, ok := m.pages[pageNo]; !ok {
		return fmt.Errorf("[WritePage] %s page %d: %w", m.name, pageNo, util.ErrPageNotFound)
	}

	cp := *p
	cp.Header.PageID = pageNo
	m.pages[pageNo] = &cp
	m.writes[pageNo]++
	m.writeLog = append(m.writeLog, WriteRecord{PageNo: pageNo, Data: p.Data})
	return nil
}

func (m *MemFile) AllocatePage() (util.PageID, *page.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pageNo := m.nextID
	m.nextID++
	m.pages[pageNo] = &page.Page{Header: page.PageHeader{PageID: pageNo}}

	return pageNo, &page.Page{Header: page.PageHeader{PageID: pageNo}}, nil
}

func (m *MemFile) DeletePage(pageNo util.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[pageNo]; !ok {
		return fmt.Errorf("[DeletePage] %s page %d: %w", m.name, pageNo, util.ErrPageNotFound)
	}
	delete(m.pages, pageNo)
	m.deletes = append(m.deletes, pageNo)
	return nil
}

// Seed stores a page directly, bypassing the read/write accounting.
func (m *MemFile) Seed(pageNo util.PageID, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages[pageNo] = page.CreateTestPage(pageNo, data)
	if pageNo >= m.nextID {
		m.nextID = pageNo + 1
	}
}

// Contents returns a copy of the stored data of pageNo.
func (m *MemFile) Contents(pageNo util.PageID) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[pageNo]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(p.Data))
	copy(out, p.Data[:])
	return out, true
}

func (m *MemFile) Exists(pageNo util.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pages[pageNo]
	return ok
}

func (m *MemFile) Reads(pageNo util.PageID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[pageNo]
}

func (m *MemFile) Writes(pageNo util.PageID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[pageNo]
}

// WriteLog returns every WritePage call in order.
func (m *MemFile) WriteLog() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteRecord, len(m.writeLog))
	copy(out, m.writeLog)
	return out
}

func (m *MemFile) Deletes() []util.PageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]util.PageID, len(m.deletes))
	copy(out, m.deletes)
	return out
}

// FailReads makes every following ReadPage return err; nil restores reads.
func (m *MemFile) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = err
}

// FailWrites makes every following WritePage return err; nil restores writes.
func (m *MemFile) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

package page

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

const (
	HEADER_SIZE = 16 // Size of PageHeader struct: PageID(8) + Checksum(4) + Flags(2) + padding(2)
	DATA_SIZE   = util.PageSize - HEADER_SIZE
)

const (
	// FlagFree marks a page that was deleted from its file.
	FlagFree uint16 = 1 << iota
)

// Page is block that read/write from disk
type Page struct {
	Header PageHeader
	Data   [DATA_SIZE]byte
}

type PageHeader struct {
	PageID   util.PageID // 8 bytes
	Checksum uint32      // 4 bytes
	Flags    uint16      // 2 bytes
	_        uint16      //2 bytes (padding)
}

func (h *PageHeader) IsFree() bool {
	return h.Flags&FlagFree != 0
}

func (h *PageHeader) SetFree() {
	h.Flags |= FlagFree
}

// Reset zeroes the page in place.
func (p *Page) Reset() {
	*p = Page{}
}

// Serialize packs the page into a byte slice for writing. The checksum is
// computed over the whole encoded page with the checksum field zeroed and is
// also stored back into p.Header.
func (p *Page) Serialize() []byte {
	buf := make([]byte, util.PageSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Header.PageID))
	binary.LittleEndian.PutUint16(buf[12:14], p.Header.Flags)
	copy(buf[HEADER_SIZE:], p.Data[:])

	p.Header.Checksum = checksum(buf)
	binary.LittleEndian.PutUint32(buf[8:12], p.Header.Checksum)

	return buf
}

// Deserialize unpacks from bytes, validates checksum
func Deserialize(data []byte) (*Page, error) {
	if len(data) != util.PageSize {
		return nil, fmt.Errorf("deserialize %d bytes: %w", len(data), util.ErrInvalidPageSize)
	}

	buf := make([]byte, util.PageSize)
	copy(buf, data)

	stored := binary.LittleEndian.Uint32(buf[8:12])
	binary.LittleEndian.PutUint32(buf[8:12], 0)
	if sum := checksum(buf); sum != stored {
		return nil, fmt.Errorf("stored %#x computed %#x: %w", stored, sum, util.ErrChecksumMismatch)
	}

	p := &Page{}
	p.Header.PageID = util.PageID(binary.LittleEndian.Uint64(buf[0:8]))
	p.Header.Checksum = stored
	p.Header.Flags = binary.LittleEndian.Uint16(buf[12:14])
	copy(p.Data[:], buf[HEADER_SIZE:])

	return p, nil
}

func checksum(buf []byte) uint32 {
	return uint32(xxhash.Sum64(buf))
}

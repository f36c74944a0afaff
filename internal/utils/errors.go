package util

import "errors"

var (
	ErrInvalidPageId    = errors.New("invalid page id")
	ErrInvalidPageSize  = errors.New("invalid page size")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrPageNotFound     = errors.New("page not found")
	ErrFileClosed       = errors.New("file is closed")
	ErrInvalidPoolSize  = errors.New("invalid pool size")
	ErrUnknownReplacer  = errors.New("unknown replacer")
	ErrOutBoundOfFrame  = errors.New("frame idx out of bound")

	// buffer manager conditions
	ErrBufferExceeded = errors.New("buffer exceeded: all frames are pinned")
	ErrPageNotPinned  = errors.New("page is not pinned")
	ErrPagePinned     = errors.New("page is pinned")
	ErrBadBuffer      = errors.New("bad buffer: frame owned by file but not valid")
	ErrDuplicateEntry = errors.New("page directory entry already exists")
	ErrEntryNotFound  = errors.New("page directory entry not found")
	ErrClosed         = errors.New("buffer manager is closed")
)

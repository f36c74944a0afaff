package file

import (
	"sync/atomic"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	utils "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// Filer is a page-oriented file as seen by the buffer manager.
type Filer interface {
	// ID is stable for the open file and distinct across open files.
	ID() utils.FileID
	Name() string
	// ReadPage fails with utils.ErrPageNotFound if pageNo is not a live page.
	ReadPage(pageNo utils.PageID) (*page.Page, error)
	WritePage(pageNo utils.PageID, p *page.Page) error
	AllocatePage() (utils.PageID, *page.Page, error)
	DeletePage(pageNo utils.PageID) error
}

var fileIDs atomic.Uint32

func nextFileID() utils.FileID {
	return utils.FileID(fileIDs.Add(1))
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/buffer"
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML options file")
		path       = flag.String("path", "", "data file (overrides config)")
		frames     = flag.Int("frames", 0, "buffer pool size in frames (overrides config)")
		pages      = flag.Int("pages", 16, "pages to allocate")
		replacer   = flag.String("replacer", "", "replacement policy: clock or lru (overrides config)")
		raw        = flag.Bool("raw", false, "dump the frame table with spew")
	)
	flag.Parse()

	if err := run(*configPath, *path, *frames, *pages, *replacer, *raw); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, path string, frames, pages int, replacer string, raw bool) (err error) {
	opts := util.DefaultOptions()
	if configPath != "" {
		if opts, err = util.LoadOptions(configPath); err != nil {
			return err
		}
	}
	if path != "" {
		opts.Path = path
	}
	if frames != 0 {
		opts.BufferPoolSize = frames
	}
	if replacer != "" {
		opts.Replacer = replacer
	}

	level, err := opts.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	df, err := file.OpenDiskFile(opts.Path, opts.SyncWrites)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, df.Close())
	}()

	bm, err := buffer.NewBufMgrFromOptions(opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		// the manager writes back before the file closes
		err = errors.Join(bm.Close(), err)
	}()

	logger.Info("bufmgr: opened",
		"path", df.Name(),
		"pages", df.PageCount(),
		"frames", bm.NumFrames(),
		"pool", humanize.IBytes(uint64(bm.NumFrames())*util.PageSize),
		"replacer", opts.Replacer)

	allocated := make([]util.PageID, 0, pages)
	for i := 0; i < pages; i++ {
		pageNo, h, err := bm.AllocPage(df)
		if err != nil {
			return err
		}
		copy(h.Bytes(), fmt.Sprintf("page %d of %s", pageNo, df.Name()))
		h.MarkDirty()
		if err := h.Release(); err != nil {
			return err
		}
		allocated = append(allocated, pageNo)
	}

	for i := 0; i < len(allocated) && i < 4; i++ {
		h, err := bm.FetchPage(df, allocated[i])
		if err != nil {
			return err
		}
		logger.Debug("bufmgr: re-fetched", "pageNo", allocated[i], "frame", h.Frame())
		if err := h.Release(); err != nil {
			return err
		}
	}

	if raw {
		spew.Fdump(os.Stdout, bm.Snapshot())
	} else if err := bm.Dump(os.Stdout); err != nil {
		return err
	}

	st := bm.Stats()
	fmt.Printf("hits:%d misses:%d hit rate:%.2f evictions:%d writebacks:%d\n",
		st.Hits, st.Misses, st.HitRate(), st.Evictions, st.Writebacks)
	return nil
}

package util

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// PageID represents a page number within one file
type PageID uint64

// FrameID indexes a slot of the buffer pool
type FrameID int

// InvalidFrame marks "no frame"
const InvalidFrame FrameID = -1

// FileID identifies an open page file. It is stable for the lifetime of the
// open file and distinct across files.
type FileID uint32

// PageSize represents the standard page size (4KB)
const PageSize = 4096

// PageError carries the page and frame a buffer manager failure is about.
// Err is always one of the sentinel errors in this package, so callers can
// match it with errors.Is.
type PageError struct {
	Op     string
	File   string
	PageNo PageID
	Frame  FrameID
	Err    error
}

func (e *PageError) Error() string {
	if e.Frame == InvalidFrame {
		return fmt.Sprintf("[bufmgr] [%s] file %q page %d: %v", e.Op, e.File, e.PageNo, e.Err)
	}
	return fmt.Sprintf("[bufmgr] [%s] file %q page %d frame %d: %v", e.Op, e.File, e.PageNo, e.Frame, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// NewPageError creates a new page error
func NewPageError(op, file string, pageNo PageID, frame FrameID, err error) *PageError {
	return &PageError{
		Op:     op,
		File:   file,
		PageNo: pageNo,
		Frame:  frame,
		Err:    err,
	}
}

// Replacement policies understood by the buffer manager.
const (
	ReplacerClock = "clock"
	ReplacerLRU   = "lru"
)

// Options represents buffer manager configuration options
type Options struct {
	Path           string `yaml:"path"`
	BufferPoolSize int    `yaml:"buffer_pool_size"`
	Replacer       string `yaml:"replacer"`
	SyncWrites     bool   `yaml:"sync_writes"`
	LogLevel       string `yaml:"log_level"`
}

// DefaultOptions returns default options
func DefaultOptions() Options {
	return Options{
		Path:           "bufmgr.dat",
		BufferPoolSize: 1000, // 4MB default buffer pool
		Replacer:       ReplacerClock,
		SyncWrites:     false,
		LogLevel:       "info",
	}
}

// LoadOptions reads a YAML file on top of DefaultOptions. Keys missing from
// the file keep their default value.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}

	return opts, nil
}

// Validate checks option values that the buffer manager cannot recover from.
func (o Options) Validate() error {
	if o.BufferPoolSize <= 0 {
		return fmt.Errorf("buffer_pool_size %d: %w", o.BufferPoolSize, ErrInvalidPoolSize)
	}
	switch o.Replacer {
	case ReplacerClock, ReplacerLRU:
	default:
		return fmt.Errorf("replacer %q: %w", o.Replacer, ErrUnknownReplacer)
	}
	if _, err := o.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level. An empty level means info.
func (o Options) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if o.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(o.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", o.LogLevel, err)
	}
	return lvl, nil
}

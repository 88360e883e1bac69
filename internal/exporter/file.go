// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sustainable-computing-io/joule-profiler/internal/measurement"
	"github.com/sustainable-computing-io/joule-profiler/internal/service"
	"k8s.io/utils/clock"
)

// File is an output file of a file based exporter. The file is created by Init,
// named data<unix-seconds>.<ext> when no path is given, and closed by Shutdown.
type File struct {
	logger   *slog.Logger
	path     string
	ext      string
	clock    clock.PassiveClock
	getenv   func(string) string
	announce io.Writer

	file *os.File
}

var (
	_ service.Initializer = (*File)(nil)
	_ service.Shutdowner  = (*File)(nil)
)

type FileOpts struct {
	logger   *slog.Logger
	clock    clock.PassiveClock
	getenv   func(string) string
	announce io.Writer
}

func DefaultFileOpts() FileOpts {
	return FileOpts{
		logger:   slog.Default(),
		clock:    clock.RealClock{},
		getenv:   os.Getenv,
		announce: os.Stdout,
	}
}

// FileOptionFn is a function sets one more more options in FileOpts struct
type FileOptionFn func(*FileOpts)

// WithLogger sets the logger of the file
func WithLogger(logger *slog.Logger) FileOptionFn {
	return func(o *FileOpts) {
		o.logger = logger
	}
}

// WithClock sets the clock used to name files without a path
func WithClock(c clock.PassiveClock) FileOptionFn {
	return func(o *FileOpts) {
		o.clock = c
	}
}

// WithGetenv sets the environment lookup used to find the sudo user
func WithGetenv(getenv func(string) string) FileOptionFn {
	return func(o *FileOpts) {
		o.getenv = getenv
	}
}

// WithAnnounce sets where the location of written files is reported
func WithAnnounce(w io.Writer) FileOptionFn {
	return func(o *FileOpts) {
		o.announce = w
	}
}

// NewFile returns an output file at path, or at a default location when path is empty
func NewFile(path, ext string, applyOpts ...FileOptionFn) *File {
	opts := DefaultFileOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}
	return &File{
		logger:   opts.logger,
		path:     path,
		ext:      ext,
		clock:    opts.clock,
		getenv:   opts.getenv,
		announce: opts.announce,
	}
}

func (f *File) Name() string {
	return "output-file"
}

// Init resolves the path of the file and creates it
func (f *File) Init() error {
	path := f.path
	if path == "" {
		path = measurement.DefaultFileName(f.ext, f.clock.Now())
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve output path %s: %w", path, err)
	}
	f.path = abs

	f.logger.Info("Creating output file", "path", f.path)
	file, err := measurement.CreateUserFile(f.path, f.getenv)
	if err != nil {
		return err
	}
	f.file = file
	return nil
}

// Path returns the path of the file; absolute once Init succeeded
func (f *File) Path() string {
	return f.path
}

// Writer returns the open file
func (f *File) Writer() io.Writer {
	return f.file
}

// SetUserPermissions hands the file at Path back to the sudo user, for writers
// that replace the file created by Init
func (f *File) SetUserPermissions() error {
	return measurement.SetUserPermissions(f.path, f.getenv)
}

// Written reports that the file holds the output of format
func (f *File) Written(format string) {
	f.logger.Info("Output saved", "format", format, "path", f.path)
	fmt.Fprintf(f.announce, "✔ %s written to: %s\n", format, f.path)
}

func (f *File) Shutdown() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sink writes generated source files to their destination: a local directory or a
// Google Cloud Storage prefix.
package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Sink is the destination of generated files.
type Sink interface {
	// Put writes data as the file name, replacing any previous version.
	Put(ctx context.Context, name string, data []byte) error

	// Location returns the URL or path where name is written.
	Location(name string) string
}

// New returns the sink for the destination: "gs://<bucket>/<prefix>" for Google Cloud Storage,
// otherwise a local directory.
func New(destination string) (Sink, error) {
	if rest, found := strings.CutPrefix(destination, "gs://"); found {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, errors.Errorf("invalid GCS destination %q: missing bucket", destination)
		}
		return &GCS{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
	}
	if destination == "" {
		destination = "."
	}
	return &Dir{Path: destination}, nil
}

// Dir writes files into a local directory, created if needed.
type Dir struct {
	Path string
}

var _ Sink = (*Dir)(nil)

// Location implements Sink.
func (d *Dir) Location(name string) string {
	return filepath.Join(d.Path, name)
}

// Put implements Sink. The file is written to a temporary file first and renamed, so readers
// never see a partially written file.
func (d *Dir) Put(ctx context.Context, name string, data []byte) error {
	log := klog.FromContext(ctx)
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %q", d.Path)
	}
	destinationPath := d.Location(name)
	tempFile, err := os.CreateTemp(d.Path, "."+name+".*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	shouldDeleteTempFile := true
	defer func() {
		if shouldDeleteTempFile {
			if err := os.Remove(tempFile.Name()); err != nil {
				log.Error(err, "removing temp file", "path", tempFile.Name())
			}
		}
	}()

	startedAt := time.Now()
	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return errors.Wrapf(err, "writing %q", tempFile.Name())
	}
	if err := tempFile.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tempFile.Name(), destinationPath); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}
	shouldDeleteTempFile = false
	log.V(1).Info("wrote file", "path", destinationPath, "bytes", len(data), "duration", time.Since(startedAt))
	return nil
}

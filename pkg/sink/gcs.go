// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GCS writes files as objects of a Google Cloud Storage bucket, under an optional prefix.
// Credentials are taken from the environment (Application Default Credentials).
type GCS struct {
	Bucket string
	Prefix string
}

var _ Sink = (*GCS)(nil)

func (g *GCS) objectKey(name string) string {
	if g.Prefix == "" {
		return name
	}
	return path.Join(g.Prefix, name)
}

// Location implements Sink.
func (g *GCS) Location(name string) string {
	return "gs://" + g.Bucket + "/" + g.objectKey(name)
}

// Put implements Sink.
func (g *GCS) Put(ctx context.Context, name string, data []byte) error {
	log := klog.FromContext(ctx)
	gcsURL := g.Location(name)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return errors.Wrap(err, "creating GCS storage client")
	}
	defer client.Close()

	log.Info("uploading to GCS", "destination", gcsURL)
	startedAt := time.Now()
	w := client.Bucket(g.Bucket).Object(g.objectKey(name)).NewWriter(ctx)
	w.ContentType = "text/x-c"
	n, err := io.Copy(w, bytes.NewReader(data))
	if err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "uploading to %q", gcsURL)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "closing GCS writer")
	}
	log.Info("uploaded to GCS", "url", gcsURL, "bytes", n, "duration", time.Since(startedAt))
	return nil
}

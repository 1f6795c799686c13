// Copyright 2025 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with external services.
// This file implements the asset store: the collaborator that turns generated
// asset bytes into retrievable references. The primary implementation writes
// to a Google Cloud Storage bucket; a store failure is never fatal to the
// pipeline, so callers pair Upload with the local fallback writer below.
//
// Structs:
//   - GCSAssetStore: Uploads asset bytes to a GCS bucket and returns the
//     object's storage URL.
//
// Functions:
//   - NewGCSAssetStore: Constructor for the GCS-backed store.
//   - WriteLocalFallback: Writes asset bytes under the configured fallback
//     directory when the store is unreachable.
package cloud

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
)

// StorageURLPrefix is the scheme and host GCS asset references are built
// with. The experience service parses the same prefix back apart when it
// signs streaming URLs.
const StorageURLPrefix = "https://storage.mtls.cloud.google.com/"

// AssetStore is the upload contract the pipeline requires from a store. An
// error from Upload must never abort the run; the caller falls back to a
// locally addressable path instead.
type AssetStore interface {
	// Upload stores the bytes under the given object name and returns a
	// retrievable URL.
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// GCSAssetStore is the Google Cloud Storage implementation of AssetStore.
type GCSAssetStore struct {
	client *storage.Client // The client for interacting with GCS.
	bucket string          // The bucket generated assets are written to.
}

// NewGCSAssetStore is the constructor for GCSAssetStore.
//
// Inputs:
//   - client: An initialized *storage.Client.
//   - bucket: The name of the bucket to write assets into.
//
// Outputs:
//   - *GCSAssetStore: A pointer to the newly created store.
func NewGCSAssetStore(client *storage.Client, bucket string) *GCSAssetStore {
	return &GCSAssetStore{client: client, bucket: bucket}
}

// Upload writes the asset bytes to the bucket and returns the object's
// storage URL.
//
// Inputs:
//   - ctx: The context for the request.
//   - objectName: The object path within the bucket (e.g., "<session>/scene-00.png").
//   - data: The raw asset bytes.
//   - contentType: The sniffed MIME type of the bytes.
//
// Outputs:
//   - string: The storage URL of the written object.
//   - error: An error if the write or close fails.
func (s *GCSAssetStore) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("write object %s: %w", objectName, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", objectName, err)
	}
	return StorageURLPrefix + s.bucket + "/" + objectName, nil
}

// WriteLocalFallback persists asset bytes under the fallback directory and
// returns the file path. Used when the asset store is unavailable so the
// caller still receives a usable reference.
//
// Inputs:
//   - dir: The configured local fallback directory.
//   - objectName: The object path the asset would have had in the store.
//   - data: The raw asset bytes.
//
// Outputs:
//   - string: The local file path the bytes were written to.
//   - error: An error if the directory or file cannot be created.
func WriteLocalFallback(dir string, objectName string, data []byte) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create fallback dir for %s: %w", objectName, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write fallback file %s: %w", path, err)
	}
	return path, nil
}

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

// This file defines the command that persists generated asset bytes. Every
// asset is uploaded to the asset store under an object name derived from the
// session ID. An upload failure is a PersistenceFailure, which is logged and
// absorbed: the bytes are written to the local fallback directory instead
// and the run continues with the fallback path recorded on the asset.
//
// Content types are sniffed from the leading bytes rather than trusted from
// the producing backend, since placeholder and backend output travel the
// same path.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// AssetSaver is the command that uploads visual and narration bytes and
// clears them from memory once a reference exists.
type AssetSaver struct {
	cor.BaseCommand
	store       cloud.AssetStore // The asset store collaborator.
	fallbackDir string           // Directory for local copies when the store is unavailable.
}

// NewAssetSaver is the constructor for the AssetSaver command.
func NewAssetSaver(name string, store cloud.AssetStore, fallbackDir string) *AssetSaver {
	return &AssetSaver{BaseCommand: *cor.NewBaseCommand(name), store: store, fallbackDir: fallbackDir}
}

// IsExecutable requires both asset branches and the session ID to have
// settled.
func (c *AssetSaver) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(GetVisualAssetsParamName()) != nil &&
		context.Get(GetAudioAssetParamName()) != nil &&
		context.Get(GetSessionIDParamName()) != nil
}

// Execute saves every asset produced by the run.
func (c *AssetSaver) Execute(context cor.Context) {
	sessionID := context.Get(GetSessionIDParamName()).(string)
	visuals := context.Get(GetVisualAssetsParamName()).([]*model.VisualAsset)
	audio := context.Get(GetAudioAssetParamName()).(*model.AudioAsset)
	summary := guardrailSummary(context)

	for _, visual := range visuals {
		objectName := fmt.Sprintf("%s/scene-%02d%s", sessionID, visual.SceneIndex, extensionFor(visual.Bytes, ".png"))
		storedURL, localPath := c.save(context, objectName, visual.Bytes, summary)
		visual.StoredURL = storedURL
		visual.LocalPath = localPath
		visual.Bytes = nil
	}

	objectName := fmt.Sprintf("%s/narration%s", sessionID, extensionFor(audio.Bytes, ".wav"))
	storedURL, localPath := c.save(context, objectName, audio.Bytes, summary)
	audio.StoredURL = storedURL
	audio.LocalPath = localPath
	audio.Bytes = nil

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), visuals)
}

// save uploads one asset, falling back to a local copy when the store
// rejects it. Returns the stored URL or the fallback path, never both.
func (c *AssetSaver) save(context cor.Context, objectName string, data []byte, summary *model.GuardrailSummary) (string, string) {
	contentType := contentTypeFor(data)

	storedURL, err := c.store.Upload(context.GetContext(), objectName, data, contentType)
	if err == nil {
		return storedURL, ""
	}

	failure := &model.PersistenceFailure{Op: "upload " + objectName, Err: err}
	slog.Warn("asset upload failed, using local fallback", "object", objectName, "error", failure)
	c.GetErrorCounter().Add(context.GetContext(), 1)

	localPath, fbErr := cloud.WriteLocalFallback(c.fallbackDir, objectName, data)
	if fbErr != nil {
		// Both the store and the local disk refused the bytes. Still not
		// fatal, but the asset ends up with no retrievable reference.
		slog.Error("local fallback write failed", "object", objectName, "error", fbErr)
		summary.Degradations = append(summary.Degradations,
			fmt.Sprintf("asset %s could not be stored: %v", objectName, fbErr))
		return "", ""
	}

	summary.Degradations = append(summary.Degradations,
		fmt.Sprintf("asset %s stored at local fallback path", objectName))
	return "", localPath
}

// contentTypeFor sniffs the MIME type from the asset's leading bytes.
func contentTypeFor(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}

// extensionFor sniffs the file extension, defaulting to the producer's
// expected type when the bytes are unrecognizable.
func extensionFor(data []byte, fallback string) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return fallback
	}
	return "." + kind.Extension
}

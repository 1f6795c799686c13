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

// This file implements the BigQuery-backed experience writer. Rows are
// streamed through an Inserter, which maps the StoryExperience struct onto
// table columns via its bigquery tags. Failures here are surfaced to the
// caller, which treats them as non-fatal.
package cloud

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// BigQueryExperienceWriter streams StoryExperience rows into the configured
// table.
type BigQueryExperienceWriter struct {
	client  *bigquery.Client // The client for interacting with BigQuery.
	dataset string           // The BigQuery dataset name.
	table   string           // The experience table within the dataset.
}

// NewBigQueryExperienceWriter is the constructor for BigQueryExperienceWriter.
func NewBigQueryExperienceWriter(client *bigquery.Client, dataset string, table string) *BigQueryExperienceWriter {
	return &BigQueryExperienceWriter{client: client, dataset: dataset, table: table}
}

// WriteExperience inserts one experience row.
func (w *BigQueryExperienceWriter) WriteExperience(ctx context.Context, experience *model.StoryExperience) error {
	inserter := w.client.Dataset(w.dataset).Table(w.table).Inserter()
	if err := inserter.Put(ctx, experience); err != nil {
		return fmt.Errorf("bigquery insert failed for session '%s': %w", experience.SessionID, err)
	}
	return nil
}

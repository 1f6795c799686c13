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

// Package services contains the business logic for interacting with data
// sources. This file centralizes the BigQuery SQL query strings used by the
// experience service. The queries use fmt.Sprintf format verbs as
// placeholders for values injected at runtime.
package services

const (
	// QryFindExperienceById retrieves a complete story experience row by its
	// session ID.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the experience table.
	// - `%s`: The session ID of the experience to find.
	QryFindExperienceById = "SELECT * from `%s` WHERE session_id = '%s'"

	// QryRecentExperiences lists the newest experiences, used by the
	// dashboard surface.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the experience table.
	// - `%d`: The maximum number of rows to return.
	QryRecentExperiences = "SELECT * from `%s` ORDER BY created_at DESC LIMIT %d"
)

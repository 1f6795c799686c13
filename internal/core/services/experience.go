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
// sources. This file defines the ExperienceService, which retrieves stored
// story experiences from BigQuery and generates secure, time-limited URLs
// for streaming their assets out of Google Cloud Storage.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// ExperienceService is the data access layer for stored story experiences.
type ExperienceService struct {
	BigqueryClient  *bigquery.Client                  // Client for interacting with Google BigQuery.
	StorageClient   *storage.Client                   // Client for interacting with Google Cloud Storage.
	IAMClient       *credentials.IamCredentialsClient // Client for IAM, used for signing URLs.
	SignerEmail     string                            // The service account email used to sign URLs.
	DatasetName     string                            // The BigQuery dataset name.
	ExperienceTable string                            // The table containing experience rows.
}

// GetFQN returns the complete, queryable name for the experience table,
// formatted with dots instead of colons.
func (s *ExperienceService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ExperienceTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Get retrieves a single story experience by its session ID.
func (s *ExperienceService) Get(ctx context.Context, sessionID string) (*model.StoryExperience, error) {
	queryText := fmt.Sprintf(QryFindExperienceById, s.GetFQN(), sessionID)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	experience := &model.StoryExperience{}
	err = itr.Next(experience)
	if err == iterator.Done {
		return nil, fmt.Errorf("experience %s not found", sessionID)
	}
	if err != nil {
		return nil, err
	}
	return experience, nil
}

// List retrieves the newest experiences up to the given limit.
func (s *ExperienceService) List(ctx context.Context, limit int) ([]*model.StoryExperience, error) {
	queryText := fmt.Sprintf(QryRecentExperiences, s.GetFQN(), limit)
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.StoryExperience, 0, limit)
	for {
		experience := &model.StoryExperience{}
		err = itr.Next(experience)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, experience)
	}
	return out, nil
}

// SignedAssetURLs resolves every stored asset of an experience to a signed
// streaming URL. Assets that only exist at a local fallback path keep that
// path as their reference, since there is nothing in GCS to sign.
func (s *ExperienceService) SignedAssetURLs(ctx context.Context, experience *model.StoryExperience, expires time.Duration) (map[string]string, error) {
	urls := make(map[string]string)

	for _, visual := range experience.VisualAssets {
		key := fmt.Sprintf("scene-%02d", visual.SceneIndex)
		if visual.StoredURL == "" {
			urls[key] = visual.LocalPath
			continue
		}
		signed, err := s.GenerateSignedURL(ctx, visual.StoredURL, expires)
		if err != nil {
			return nil, err
		}
		urls[key] = signed
	}

	if experience.AudioAsset != nil {
		if experience.AudioAsset.StoredURL == "" {
			urls["narration"] = experience.AudioAsset.LocalPath
		} else {
			signed, err := s.GenerateSignedURL(ctx, experience.AudioAsset.StoredURL, expires)
			if err != nil {
				return nil, err
			}
			urls["narration"] = signed
		}
	}

	return urls, nil
}

// GenerateSignedURL creates a time-limited, secure URL for a private GCS
// object. The URL is signed via the IAM Credentials API using the configured
// service account, so no local key material is needed.
func (s *ExperienceService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error) {
	if !strings.HasPrefix(gcsURI, cloud.StorageURLPrefix) {
		return "", fmt.Errorf("invalid GCS URI format: %s", gcsURI)
	}
	path := strings.TrimPrefix(gcsURI, cloud.StorageURLPrefix)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid GCS URI: unable to determine bucket and object from %s", gcsURI)
	}
	bucketName := parts[0]
	objectName := parts[1]

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", bucketName, objectName, err)
	}
	return u, nil
}

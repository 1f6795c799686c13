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
// This file contains general-purpose utilities supporting the package:
// hierarchical configuration loading and helpers for unpacking generative
// model responses.
//
// Functions:
//   - fileExists: A simple helper to check if a file exists.
//   - LoadConfig: Hierarchical configuration loader. It reads a base file and
//     then overwrites values with an environment-specific file (e.g.,
//     .env.local.toml, .env.test.toml) selected by environment variables.
//   - ResponseText: Concatenates the text parts of a GenerateContent response.
//   - ResponseAudio: Extracts the inline audio bytes of a TTS response.
package cloud

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

// Cloud constants define the configuration loading conventions.
const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
)

// fileExists checks if a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides a hierarchical configuration loading mechanism. It
// first loads a base configuration file and then overwrites its values with
// an environment-specific file. The directory and environment are selected
// by the GCP_CONFIG_PREFIX and GCP_RUNTIME environment variables.
//
// Inputs:
//   - baseConfig: A pointer to the target configuration struct that will be
//     populated from the TOML files.
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	// Default to the "test" runtime so test runs pick up the test overrides
	// without any environment setup.
	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	// Values in the environment file overwrite the base values.
	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}
}

// ResponseText concatenates the text parts of every candidate in a
// GenerateContent response, trimming code fences the model sometimes wraps
// around structured output.
//
// Inputs:
//   - resp: The response returned by Models.GenerateContent.
//
// Outputs:
//   - string: The concatenated text content of the response.
//   - error: An error when the response carries no text at all.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	value := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			value += part.Text
		}
	}
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimPrefix(value, "```")
	value = strings.TrimSuffix(value, "```")
	if len(strings.TrimSpace(value)) == 0 {
		return "", fmt.Errorf("model response contained no text")
	}
	return strings.TrimSpace(value), nil
}

// ResponseAudio extracts the inline audio bytes from a speech synthesis
// response.
//
// Inputs:
//   - resp: The response returned by Models.GenerateContent with the AUDIO
//     response modality.
//
// Outputs:
//   - []byte: The raw audio bytes.
//   - error: An error when the response carries no audio data.
func ResponseAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("model response contained no audio data")
}

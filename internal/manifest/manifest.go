// Package manifest describes the published model catalog (manifest.json) and
// caches it in memory between refreshes.
package manifest

import (
	"encoding/json"
	"fmt"
	"time"
)

// Model publication status values
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

const githubBaseURL = "https://github.com"

// Model is one published GLB conversion of a source CAD repository
type Model struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	SourceRepo  string    `json:"sourceRepo"`
	CommitSHA   string    `json:"commitSha"`
	PublishedAt time.Time `json:"publishedAt"`
	Status      string    `json:"status"`
}

// Manifest lists published models keyed by project ID
type Manifest struct {
	LastUpdated time.Time          `json:"lastUpdated"`
	Models      map[string][]Model `json:"models"`
}

// Parse decodes a manifest document
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Models == nil {
		m.Models = make(map[string][]Model)
	}
	return &m, nil
}

// CurrentModel returns the model shown for a project: the first successful
// build, otherwise the first listed model. ok is false when the project has
// no models.
func (m *Manifest) CurrentModel(project string) (Model, bool) {
	if m == nil {
		return Model{}, false
	}
	models := m.Models[project]
	for _, model := range models {
		if model.Status == StatusSuccess {
			return model, true
		}
	}
	if len(models) > 0 {
		return models[0], true
	}
	return Model{}, false
}

// ModelCount returns the total number of models across all projects
func (m *Manifest) ModelCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, models := range m.Models {
		n += len(models)
	}
	return n
}

// RepoURL links to the source repository on GitHub
func (m Model) RepoURL() string {
	return fmt.Sprintf("%s/%s", githubBaseURL, m.SourceRepo)
}

// CommitURL links to the source commit the model was built from
func (m Model) CommitURL() string {
	return fmt.Sprintf("%s/%s/commit/%s", githubBaseURL, m.SourceRepo, m.CommitSHA)
}

// ShortSHA is the abbreviated commit hash
func (m Model) ShortSHA() string {
	if len(m.CommitSHA) <= 7 {
		return m.CommitSHA
	}
	return m.CommitSHA[:7]
}

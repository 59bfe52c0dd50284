package testutil

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// TestFixtures provides test data generators
type TestFixtures struct {
	now time.Time
}

// NewTestFixtures creates a new test fixtures helper
func NewTestFixtures() *TestFixtures {
	return &TestFixtures{now: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)}
}

// RandomString generates a random string of specified length
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b)
}

// RandomModelName generates a random GLB file name
func RandomModelName() string {
	return "test_" + RandomString(8) + ".glb"
}

// RandomCommitSHA generates a random 40 character hex string
func RandomCommitSHA() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 40)
	max := big.NewInt(int64(len(hex)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = hex[n.Int64()]
	}
	return string(b)
}

// TestModelData mirrors one manifest entry
type TestModelData struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	SourceRepo  string    `json:"sourceRepo"`
	CommitSHA   string    `json:"commitSha"`
	PublishedAt time.Time `json:"publishedAt"`
	Status      string    `json:"status"`
}

// NewTestModel creates manifest entry data for a project
func (f *TestFixtures) NewTestModel(project, status string) TestModelData {
	name := RandomModelName()
	return TestModelData{
		ID:          fmt.Sprintf("%s-%s", project, RandomString(6)),
		Project:     project,
		Filename:    name,
		URL:         "/models/" + name,
		SourceRepo:  "openlaptop/" + project,
		CommitSHA:   RandomCommitSHA(),
		PublishedAt: f.now,
		Status:      status,
	}
}

// ManifestJSON encodes models as a manifest.json document
func (f *TestFixtures) ManifestJSON(models ...TestModelData) []byte {
	doc := struct {
		LastUpdated time.Time                  `json:"lastUpdated"`
		Models      map[string][]TestModelData `json:"models"`
	}{
		LastUpdated: f.now,
		Models:      make(map[string][]TestModelData),
	}
	for _, m := range models {
		doc.Models[m.Project] = append(doc.Models[m.Project], m)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

// Package handoff carries build results to deployment: a JSON document
// listing published images and the deployers that consume it.
package handoff

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sofmeright/steiger/src/registry"
)

// Build is one published image.
type Build struct {
	ImageName string `json:"imageName"`
	Tag       string `json:"tag"`
}

// Document is the build output file, shaped like skaffold's
// --build-artifacts input so either tool can consume it.
type Document struct {
	Builds []Build `json:"builds"`
}

// FromResults builds a document from publish results. Tag holds the
// digest-pinned reference so deployments are reproducible.
func FromResults(results map[string]*registry.Result) *Document {
	doc := &Document{Builds: make([]Build, 0, len(results))}
	for name, res := range results {
		doc.Builds = append(doc.Builds, Build{ImageName: name, Tag: res.Reference.String()})
	}
	sort.Slice(doc.Builds, func(i, j int) bool { return doc.Builds[i].ImageName < doc.Builds[j].ImageName })
	return doc
}

// Lookup returns the tag recorded for imageName.
func (d *Document) Lookup(imageName string) (string, bool) {
	for _, b := range d.Builds {
		if b.ImageName == imageName {
			return b.Tag, true
		}
	}
	return "", false
}

// Write stores doc at path.
func Write(path string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding build output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing build output: %w", err)
	}
	return nil
}

// Read loads a document written by Write.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build output: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing build output %s: %w", path, err)
	}
	return &doc, nil
}

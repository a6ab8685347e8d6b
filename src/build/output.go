package build

import (
	"sort"

	"github.com/sofmeright/steiger/src/image"
)

// Output maps artifact names to the images built for them.
type Output struct {
	Artifacts map[string][]*image.Image
}

func NewOutput() Output {
	return Output{Artifacts: make(map[string][]*image.Image)}
}

// SingleArtifact wraps the images of one artifact.
func SingleArtifact(name string, images []*image.Image) Output {
	return Output{Artifacts: map[string][]*image.Image{name: images}}
}

// Merge copies every artifact of other into o. When both hold the same
// name, other's entry replaces o's.
func (o *Output) Merge(other Output) {
	if o.Artifacts == nil {
		o.Artifacts = make(map[string][]*image.Image, len(other.Artifacts))
	}
	for name, images := range other.Artifacts {
		o.Artifacts[name] = images
	}
}

// Names returns artifact names in sorted order.
func (o Output) Names() []string {
	names := make([]string, 0, len(o.Artifacts))
	for name := range o.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len is the number of artifacts.
func (o Output) Len() int { return len(o.Artifacts) }

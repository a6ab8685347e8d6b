package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Service is one named build target.
type Service struct {
	Name  string
	Build BuildConfig
}

type serviceDoc struct {
	Build BuildConfig `yaml:"build"`
}

// ArtifactNames lists the artifacts this service produces. Docker and ko
// services produce one artifact named after the service; bazel and nix
// services produce one per configured key.
func (s Service) ArtifactNames() []string {
	switch {
	case s.Build.Bazel != nil:
		return sortedKeys(s.Build.Bazel.Targets)
	case s.Build.Nix != nil:
		return sortedKeys(s.Build.Nix.Packages)
	default:
		return []string{s.Name}
	}
}

// Services keeps the order services were declared in.
type Services []Service

func (s *Services) UnmarshalYAML(value *yaml.Node) error {
	return decodeOrdered(value, "services", func(name string, node *yaml.Node) error {
		var doc serviceDoc
		if err := node.Decode(&doc); err != nil {
			return fmt.Errorf("services.%s: %w", name, err)
		}
		*s = append(*s, Service{Name: name, Build: doc.Build})
		return nil
	})
}

// Names returns service names in declaration order.
func (s Services) Names() []string {
	names := make([]string, len(s))
	for i, svc := range s {
		names[i] = svc.Name
	}
	return names
}

// decodeOrdered walks a mapping node in document order.
func decodeOrdered(value *yaml.Node, field string, fn func(key string, node *yaml.Node) error) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: line %d: expected a mapping", field, value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if err := fn(value.Content[i].Value, value.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedValues returns map values ordered by key.
func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}

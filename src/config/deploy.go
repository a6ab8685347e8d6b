package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Release is one named deployment.
type Release struct {
	Name string
	Helm *HelmRelease
}

// HelmRelease installs or upgrades a local chart.
type HelmRelease struct {
	Path        string            `yaml:"path"`
	Namespace   string            `yaml:"namespace"`
	Timeout     time.Duration     `yaml:"timeout"`
	Values      map[string]string `yaml:"values"`
	ValuesFiles []string          `yaml:"valuesFiles"`
}

// Releases keeps the order releases were declared in.
type Releases []Release

func (r *Releases) UnmarshalYAML(value *yaml.Node) error {
	return decodeOrdered(value, "deploy", func(name string, node *yaml.Node) error {
		var head struct {
			Type string `yaml:"type"`
		}
		if err := node.Decode(&head); err != nil {
			return fmt.Errorf("deploy.%s: %w", name, err)
		}
		rel := Release{Name: name}
		switch head.Type {
		case "helm":
			rel.Helm = &HelmRelease{}
			if err := node.Decode(rel.Helm); err != nil {
				return fmt.Errorf("deploy.%s: %w", name, err)
			}
		case "":
			return fmt.Errorf("deploy.%s: type is required", name)
		default:
			return fmt.Errorf("deploy.%s: unknown deploy type %q (supported: helm)", name, head.Type)
		}
		*r = append(*r, rel)
		return nil
	})
}

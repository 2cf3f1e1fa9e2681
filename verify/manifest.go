package verify

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
)

// ManifestName is the dataset manifest consumed by training.
const ManifestName = "data.yaml"

// Manifest is the result of checking "<prefix>/data.yaml".
type Manifest struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`

	Train string   `json:"train,omitempty"`
	Val   string   `json:"val,omitempty"`
	Test  string   `json:"test,omitempty"`
	NC    int      `json:"nc,omitempty"`
	Names []string `json:"names,omitempty"`

	// Problems lists consistency issues. Empty means the manifest is usable.
	Problems []string `json:"problems,omitempty"`
}

// OK reports whether the manifest exists and has no problems.
func (m Manifest) OK() bool {
	return m.Found && len(m.Problems) == 0
}

type manifestFile struct {
	Train string     `yaml:"train"`
	Val   string     `yaml:"val"`
	Test  string     `yaml:"test"`
	NC    *int       `yaml:"nc"`
	Names classNames `yaml:"names"`
}

// classNames accepts names as a sequence or as an index-keyed mapping.
type classNames []string

func (c *classNames) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*c = names
		return nil
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := node.Decode(&byIndex); err != nil {
			return err
		}
		indexes := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		names := make([]string, 0, len(indexes))
		for want, i := range indexes {
			if i != want {
				return fmt.Errorf("names: index %d missing", want)
			}
			names = append(names, byIndex[i])
		}
		*c = names
		return nil
	default:
		return fmt.Errorf("names: expected a list or mapping at line %s", strconv.Itoa(node.Line))
	}
}

// CheckManifest looks for "<prefix>/data.yaml" and, when present, parses it
// and checks that the splits are named and nc matches the class names.
// Only store failures are returned as errors.
func (v *Verifier) CheckManifest(ctx context.Context, bucket, prefix string) (Manifest, error) {
	m := Manifest{Key: prefix + "/" + ManifestName}

	found, err := v.store.Exists(ctx, bucket, m.Key)
	if err != nil {
		return m, errors.NewObjectError(errors.CodeStructureWarning, "check manifest", bucket, m.Key, err)
	}
	if !found {
		v.logger.WarnContext(ctx, "missing manifest", "key", m.Key)
		return m, nil
	}
	m.Found = true

	data, err := v.store.Get(ctx, bucket, m.Key)
	if err != nil {
		return m, errors.NewObjectError(errors.CodeStructureWarning, "check manifest", bucket, m.Key, err)
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		m.Problems = append(m.Problems, fmt.Sprintf("parse: %v", err))
		v.logger.WarnContext(ctx, "invalid manifest", "key", m.Key, "error", err)
		return m, nil
	}

	m.Train, m.Val, m.Test, m.Names = file.Train, file.Val, file.Test, file.Names
	if file.Train == "" {
		m.Problems = append(m.Problems, "train split is not set")
	}
	if file.Val == "" {
		m.Problems = append(m.Problems, "val split is not set")
	}
	switch {
	case file.NC == nil:
		m.Problems = append(m.Problems, "nc is not set")
	default:
		m.NC = *file.NC
		if m.NC != len(file.Names) {
			m.Problems = append(m.Problems, fmt.Sprintf("nc is %d but %d names are listed", m.NC, len(file.Names)))
		}
	}

	if len(m.Problems) > 0 {
		v.logger.WarnContext(ctx, "manifest has problems", "key", m.Key, "problems", m.Problems)
	} else {
		v.logger.InfoContext(ctx, "verified manifest", "key", m.Key, "classes", m.NC)
	}
	return m, nil
}

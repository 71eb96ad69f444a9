package opc

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Rashteg/h-opc-rashteg/internal/coerce"
)

//go:embed demo.yaml
var demoSpace []byte

// Space is an address-space definition as stored in YAML.
type Space struct {
	Name      string      `yaml:"name"`
	Separator string      `yaml:"separator,omitempty"`
	Nodes     []SpaceNode `yaml:"nodes"`
}

// SpaceNode is a folder (has children) or a data point (has a type
// and/or value). Tag overrides the path-derived absolute tag.
type SpaceNode struct {
	Name     string      `yaml:"name"`
	Tag      string      `yaml:"tag,omitempty"`
	Type     string      `yaml:"type,omitempty"`
	Value    any         `yaml:"value,omitempty"`
	Folder   bool        `yaml:"folder,omitempty"`
	Children []SpaceNode `yaml:"children,omitempty"`
}

// IsFolder reports whether the node holds children rather than a value.
func (n SpaceNode) IsFolder() bool {
	return n.Folder || len(n.Children) > 0
}

// LoadSpace reads an address-space YAML file.
func LoadSpace(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read address space: %w", err)
	}
	return ParseSpace(data)
}

// DemoSpace returns the built-in demonstration address space.
func DemoSpace() (*Space, error) {
	return ParseSpace(demoSpace)
}

// ParseSpace decodes an address-space document.
func ParseSpace(data []byte) (*Space, error) {
	var s Space
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse address space: %w", err)
	}
	if s.Name == "" {
		s.Name = "Root"
	}
	if s.Separator == "" {
		s.Separator = "."
	}
	return &s, nil
}

// initialValue converts the YAML value to the declared type. Values of
// undeclared or unrecognized types are kept as decoded.
func (n SpaceNode) initialValue() (any, error) {
	kind := coerce.Classify(n.Type)
	if n.Value == nil {
		if kind == coerce.KindString {
			return "", nil
		}
		if kind == coerce.KindUnknown {
			return nil, nil
		}
		return coerce.NewParser(coerce.Invariant).Parse("0", kind)
	}
	if kind == coerce.KindUnknown {
		return n.Value, nil
	}
	v, err := coerce.NewParser(coerce.Invariant).Parse(fmt.Sprint(n.Value), kind)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.Name, err)
	}
	return v, nil
}

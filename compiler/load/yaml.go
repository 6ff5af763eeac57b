package load

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLSource reads declarations from a schema file:
//
//	package: github.com/acme/shop/model
//	models:
//	  - name: User
//	    tags: table(users)
//	    accessors:
//	      - {name: ID, tag: id}
//	      - {name: Email, tag: "column(type=email, notnull)"}
//	      - {name: Posts, tag: onetomany(Post)}
//
// Short model names are qualified with the file's package.
type YAMLSource struct {
	Filename string
	Data     []byte
}

// ReadYAML returns a source over the schema file at path.
func ReadYAML(path string) (*YAMLSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: read schema file: %w", err)
	}
	return &YAMLSource{Filename: path, Data: data}, nil
}

// Declarations implements Source.
func (s *YAMLSource) Declarations() ([]*Declaration, error) {
	return ParseYAML(s.Data, s.Filename)
}

type yamlFile struct {
	Package string      `yaml:"package"`
	Models  []yamlModel `yaml:"models"`
}

type yamlModel struct {
	Name      string         `yaml:"name"`
	Tags      StringList     `yaml:"tags"`
	Accessors []yamlAccessor `yaml:"accessors"`
	line      int
}

func (m *yamlModel) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlModel
	if err := node.Decode((*plain)(m)); err != nil {
		return err
	}
	m.line = node.Line
	return nil
}

type yamlAccessor struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
	line int
}

func (a *yamlAccessor) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlAccessor
	if err := node.Decode((*plain)(a)); err != nil {
		return err
	}
	a.line = node.Line
	return nil
}

// StringList is a YAML value that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list", node.Line)
	}
}

// ParseYAML parses schema file contents. filename is only used in positions.
func ParseYAML(data []byte, filename string) ([]*Declaration, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load: parse %s: %w", filename, err)
	}
	seen := make(map[string]int)
	decls := make([]*Declaration, 0, len(f.Models))
	for _, m := range f.Models {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("load: %s:%d: model without a name", filename, m.line)
		}
		name := m.Name
		if PackageOf(name) == "" {
			name = Qualify(f.Package, name)
		}
		if line, ok := seen[name]; ok {
			return nil, fmt.Errorf("load: %s:%d: model %q already declared at line %d", filename, m.line, name, line)
		}
		seen[name] = m.line
		d := &Declaration{
			Name: name,
			Pos:  fmt.Sprintf("%s:%d", filename, m.line),
			Tags: m.Tags,
		}
		for _, a := range m.Accessors {
			if strings.TrimSpace(a.Name) == "" {
				return nil, fmt.Errorf("load: %s:%d: accessor without a name on %s", filename, a.line, name)
			}
			d.Accessors = append(d.Accessors, &Accessor{
				Name: a.Name,
				Tag:  a.Tag,
				Pos:  fmt.Sprintf("%s:%d", filename, a.line),
			})
		}
		decls = append(decls, d)
	}
	sortDeclarations(decls)
	return decls, nil
}

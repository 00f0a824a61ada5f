package envconfig

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeYAML decodes a YAML document into cfg and returns the keys that do
// not match a field.
//
// yaml.v3 converts scalars on its own: 12 decodes into a string and yes into
// a bool. Values are checked against the field types first so that YAML
// rejects the documents TOML and JSON reject.
func decodeYAML(data []byte, cfg *Config) ([]string, error) {
	var doc yaml.Node

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, err
	}

	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]

	var checker yamlChecker

	err = checker.check(root, reflect.TypeOf(*cfg), "")
	if err != nil {
		return nil, err
	}

	err = root.Decode(cfg)
	if err != nil {
		return nil, err
	}

	return checker.unknown, nil
}

type yamlChecker struct {
	unknown []string
}

func (c *yamlChecker) check(node *yaml.Node, typ reflect.Type, key string) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	switch typ.Kind() {
	case reflect.Struct:
		if node.Kind != yaml.MappingNode {
			return yamlTypeError(node, key, "mapping")
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			fullKey := joinYAMLKey(key, name)

			field, ok := yamlField(typ, name)
			if !ok {
				c.unknown = append(c.unknown, fullKey)

				continue
			}

			err := c.check(node.Content[i+1], field.Type, fullKey)
			if err != nil {
				return err
			}
		}

	case reflect.Slice:
		if node.Kind != yaml.SequenceNode {
			return yamlTypeError(node, key, "sequence")
		}

		for i, item := range node.Content {
			err := c.check(item, typ.Elem(), fmt.Sprintf("%s[%d]", key, i))
			if err != nil {
				return err
			}
		}

	case reflect.Map:
		if node.Kind != yaml.MappingNode {
			return yamlTypeError(node, key, "mapping")
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i]
			fullKey := joinYAMLKey(key, name.Value)

			err := c.check(name, typ.Key(), fullKey)
			if err != nil {
				return err
			}

			err = c.check(node.Content[i+1], typ.Elem(), fullKey)
			if err != nil {
				return err
			}
		}

	case reflect.String:
		return checkYAMLScalar(node, key, "!!str", "string")

	case reflect.Bool:
		return checkYAMLScalar(node, key, "!!bool", "bool")
	}

	return nil
}

func checkYAMLScalar(node *yaml.Node, key, tag, want string) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != tag {
		return yamlTypeError(node, key, want)
	}

	return nil
}

func yamlTypeError(node *yaml.Node, key, want string) error {
	var found string

	switch node.Kind {
	case yaml.MappingNode:
		found = "mapping"
	case yaml.SequenceNode:
		found = "sequence"
	default:
		found = strings.TrimPrefix(node.ShortTag(), "!!")
	}

	if key == "" {
		key = "document"
	}

	return fmt.Errorf("line %d: %s: expected %s but found %s", node.Line, key, want, found)
}

// yamlField returns the field of typ whose yaml tag is name.
func yamlField(typ reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		tag, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if tag == name {
			return field, true
		}
	}

	return reflect.StructField{}, false
}

func joinYAMLKey(parent, name string) string {
	if parent == "" {
		return name
	}

	return parent + "." + name
}

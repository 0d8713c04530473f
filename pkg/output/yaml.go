package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

// writeYAML writes the report document with the same layout as the JSON
// rendering. Mapping nodes are built by hand to keep execution order.
func writeYAML(w io.Writer, rec vcontrold.Record) error {
	meta, err := mappingNode(metaFields(rec))
	if err != nil {
		return err
	}

	data := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, item := range rec.Items {
		node, err := mappingNode(itemFields(item))
		if err != nil {
			return err
		}
		data.Content = append(data.Content, keyNode(item.Command), node)
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		keyNode("meta"), meta,
		keyNode("data"), data,
	}}
	return WriteYAML(w, doc)
}

func mappingNode(fields []field) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range fields {
		var value yaml.Node
		if err := value.Encode(f.value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.key, err)
		}
		m.Content = append(m.Content, keyNode(f.key), &value)
	}
	return m, nil
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

// WriteYAML writes v as a YAML document with two space indentation.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

package extract

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Values baked into the reference settings.yaml. When the template cannot be
// parsed these literals are substituted textually instead.
const (
	templateAPIBase = "http://10.7.0.3:1234/v1"
	templateModel   = "llama-3.3-70b-instruct"
)

// modelPaths are the config layouts that name the chat model, newest first.
var modelPaths = [][]string{
	{"completion_models", "default_completion_model"},
	{"models", "default_chat_model"},
}

// RenderSettings points the indexer's chat model at apiBase/model. Key order
// and comments of the template are kept.
func RenderSettings(template []byte, apiBase, model string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(template, &doc); err != nil || len(doc.Content) == 0 {
		out := strings.ReplaceAll(string(template), templateAPIBase, apiBase)
		out = strings.ReplaceAll(out, templateModel, model)
		return []byte(out), nil
	}
	root := doc.Content[0]
	for _, path := range modelPaths {
		if m := lookup(root, path...); m != nil && m.Kind == yaml.MappingNode {
			setScalar(m, "api_base", apiBase)
			setScalar(m, "model", model)
			break
		}
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return out, nil
}

func lookup(n *yaml.Node, keys ...string) *yaml.Node {
	cur := n
	for _, k := range keys {
		if cur == nil || cur.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(cur.Content); i += 2 {
			if cur.Content[i].Value == k {
				next = cur.Content[i+1]
				break
			}
		}
		cur = next
	}
	return cur
}

func setScalar(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

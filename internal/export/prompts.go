package export

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/passage-migration/internal/domain/content"
	"github.com/yungbote/passage-migration/internal/platform/config"
)

const metadataKey = "metadata"

type PromptSummary struct {
	Key             string
	TotalPrompts    int
	TotalCategories int
	Categories      []string
}

type promptCategory struct {
	titles   []string
	contents map[string]string
}

// groupPrompts groups rows by category. Titles keep first-seen order; a repeated
// title keeps its position and takes the later content.
func groupPrompts(rows []types.PromptRow) (map[string]*promptCategory, []string) {
	groups := map[string]*promptCategory{}
	for _, r := range rows {
		g, ok := groups[r.Category]
		if !ok {
			g = &promptCategory{contents: map[string]string{}}
			groups[r.Category] = g
		}
		if _, seen := g.contents[r.Title]; !seen {
			g.titles = append(g.titles, r.Title)
		}
		g.contents[r.Title] = r.Content
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return groups, names
}

// BuildPromptYAML renders the metadata block followed by category -> title -> content
// mappings, categories sorted.
func BuildPromptYAML(env config.Environment, exportedAt string, rows []types.PromptRow) ([]byte, PromptSummary, error) {
	groups, names := groupPrompts(rows)
	sum := PromptSummary{
		TotalPrompts:    len(rows),
		TotalCategories: len(names),
		Categories:      names,
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	meta := &yaml.Node{Kind: yaml.MappingNode}
	meta.Content = append(meta.Content,
		strNode("environment"), strNode(strings.ToUpper(string(env))),
		strNode("export_timestamp"), strNode(exportedAt),
		strNode("total_categories"), intNode(sum.TotalCategories),
		strNode("total_prompts"), intNode(sum.TotalPrompts),
	)
	root.Content = append(root.Content, strNode(metadataKey), meta)

	for _, name := range names {
		if name == metadataKey {
			return nil, sum, fmt.Errorf("prompt category %q collides with the metadata block", name)
		}
		g := groups[name]
		cat := &yaml.Node{Kind: yaml.MappingNode}
		for _, title := range g.titles {
			cat.Content = append(cat.Content, strNode(title), textNode(g.contents[title]))
		}
		root.Content = append(root.Content, strNode(name), cat)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, sum, fmt.Errorf("encode prompts yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, sum, fmt.Errorf("encode prompts yaml: %w", err)
	}
	return buf.Bytes(), sum, nil
}

func strNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func intNode(n int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}
}

// textNode uses block literal style for multi-line prompt bodies.
func textNode(v string) *yaml.Node {
	n := strNode(v)
	if strings.Contains(v, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}

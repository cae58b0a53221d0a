package graph

import "fmt"

// syntheticTree is the demo hierarchy: hub -> categories -> leaf titles.
var syntheticTree = []struct {
	hub        string
	categories []struct {
		name   string
		leaves []string
	}
}{
	{"Engineering", []struct {
		name   string
		leaves []string
	}{
		{"Infrastructure", []string{"Deploy pipeline", "On-call runbook", "Cost review"}},
		{"Frontend", []string{"Design tokens", "Accessibility audit", "Bundle budget"}},
		{"Data", []string{"Warehouse schema", "Event taxonomy"}},
	}},
	{"Product", []struct {
		name   string
		leaves []string
	}{
		{"Roadmap", []string{"Q3 themes", "Pricing experiments"}},
		{"Research", []string{"Interview notes", "Churn survey", "Persona map"}},
	}},
	{"Company", []struct {
		name   string
		leaves []string
	}{
		{"Onboarding", []string{"First week", "Tooling setup"}},
		{"Handbook", []string{"Travel policy", "Remote work", "Security basics"}},
	}},
}

// syntheticCross links leaves across clusters so the demo has a few
// non-tree edges.
var syntheticCross = [][2]string{
	{"Event taxonomy", "Churn survey"},
	{"Security basics", "On-call runbook"},
	{"Tooling setup", "Deploy pipeline"},
}

func syntheticID(kind, name string) string {
	return fmt.Sprintf("synthetic-%s-%s", kind, slug(name))
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	return string(out)
}

// WithSynthetic returns p followed by the demo dataset. p is not modified.
func (p Payload) WithSynthetic() Payload {
	syn := Synthetic()
	return Payload{
		Nodes: append(append([]RawNode(nil), p.Nodes...), syn.Nodes...),
		Links: append(append([]RawLink(nil), p.Links...), syn.Links...),
	}
}

// Synthetic returns a fresh copy of the deterministic demo dataset.
func Synthetic() Payload {
	var p Payload
	for _, h := range syntheticTree {
		hubID := syntheticID("hub", h.hub)
		p.Nodes = append(p.Nodes, RawNode{ID: hubID, Group: int(Hub), Value: 12, Title: h.hub})
		for _, c := range h.categories {
			catID := syntheticID("category", c.name)
			p.Nodes = append(p.Nodes, RawNode{ID: catID, Group: int(Category), Value: 6, Title: c.name})
			p.Links = append(p.Links, RawLink{Source: RefID(hubID), Target: RefID(catID)})
			for _, leaf := range c.leaves {
				leafID := syntheticID("leaf", leaf)
				p.Nodes = append(p.Nodes, RawNode{
					ID:        leafID,
					Group:     int(Leaf),
					Value:     2,
					Title:     leaf,
					ArticleID: leafID,
				})
				p.Links = append(p.Links, RawLink{Source: RefID(catID), Target: RefID(leafID)})
			}
		}
	}
	for _, pair := range syntheticCross {
		p.Links = append(p.Links, RawLink{
			Source: RefID(syntheticID("leaf", pair[0])),
			Target: RefID(syntheticID("leaf", pair[1])),
		})
	}
	return p
}

package scraper

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// maxTextPerNode bounds the text carried per node so pathological pages
// cannot inflate the extraction payload.
const maxTextPerNode = 400

// extraction mirrors the JSON object produced by the in-page script.
type extraction struct {
	Title       string       `json:"title"`
	Nodes       []rawNode    `json:"nodes"`
	Stylesheets []string     `json:"stylesheets"`
	MetaTags    []rawMetaTag `json:"meta_tags"`
	IconLinks   []string     `json:"icon_links"`
}

type rawNode struct {
	Tag   string   `json:"tag"`
	Text  string   `json:"text"`
	Rect  rawRect  `json:"rect"`
	Style rawStyle `json:"style"`
	Depth int      `json:"depth"`
}

type rawRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type rawStyle struct {
	FontFamily string `json:"font_family"`
	FontSize   string `json:"font_size"`
	FontWeight string `json:"font_weight"`
	Color      string `json:"color"`
	Background string `json:"background"`
	Display    string `json:"display"`
}

type rawMetaTag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// toResult normalizes the raw extraction into the domain shape: text is
// trimmed and bounded, font sizes parsed, invisible nodes dropped, and the
// node list capped.
func (e extraction) toResult(maxNodes int) clone.ScrapeResult {
	result := clone.ScrapeResult{
		Title:          strings.TrimSpace(e.Title),
		StylesheetURLs: e.Stylesheets,
		IconLinks:      e.IconLinks,
	}
	for _, m := range e.MetaTags {
		if m.Name == "" {
			continue
		}
		result.MetaTags = append(result.MetaTags, m.Name+"="+strings.TrimSpace(m.Content))
	}
	for _, n := range e.Nodes {
		if maxNodes > 0 && len(result.Nodes) >= maxNodes {
			break
		}
		node, ok := normalizeNode(n)
		if !ok {
			continue
		}
		result.Nodes = append(result.Nodes, node)
	}
	return result
}

func normalizeNode(n rawNode) (clone.Node, bool) {
	rect := clone.Rect{X: n.Rect.X, Y: n.Rect.Y, W: n.Rect.W, H: n.Rect.H}
	if rect.Area() == 0 {
		return clone.Node{}, false
	}
	text := strings.Join(strings.Fields(n.Text), " ")
	if len(text) > maxTextPerNode {
		text = text[:maxTextPerNode]
	}
	return clone.Node{
		Tag:  strings.ToLower(n.Tag),
		Text: text,
		Rect: rect,
		Style: clone.NodeStyle{
			FontFamily: n.Style.FontFamily,
			FontSize:   parseFontSize(n.Style.FontSize),
			FontWeight: n.Style.FontWeight,
			Color:      n.Style.Color,
			Background: n.Style.Background,
			Display:    n.Style.Display,
		},
		Depth: n.Depth,
	}, true
}

// parseFontSize reads the leading number of a CSS px value like "16px".
func parseFontSize(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	var size float64
	if _, err := fmt.Sscanf(v, "%f", &size); err != nil || size < 0 {
		return 0
	}
	return size
}

// extractScript returns the in-page script evaluated after the page
// settles. It walks the body, skipping invisible and script-like elements,
// and emits one entry per visible element up to the cap.
func extractScript(maxNodes int) string {
	return fmt.Sprintf(extractScriptTemplate, maxNodes)
}

const extractScriptTemplate = `(() => {
	const SKIP = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'LINK', 'META', 'HEAD']);
	const maxNodes = %d;
	const nodes = [];
	const walk = (el, depth) => {
		if (nodes.length >= maxNodes || SKIP.has(el.tagName)) return;
		const rect = el.getBoundingClientRect();
		const cs = window.getComputedStyle(el);
		const visible = rect.width > 0 && rect.height > 0 &&
			cs.display !== 'none' && cs.visibility !== 'hidden';
		if (visible) {
			let text = '';
			for (const child of el.childNodes) {
				if (child.nodeType === Node.TEXT_NODE) text += child.textContent;
			}
			nodes.push({
				tag: el.tagName.toLowerCase(),
				text: text.trim().slice(0, 400),
				rect: {x: rect.x, y: rect.y, w: rect.width, h: rect.height},
				style: {
					font_family: cs.fontFamily,
					font_size: cs.fontSize,
					font_weight: cs.fontWeight,
					color: cs.color,
					background: cs.backgroundColor,
					display: cs.display,
				},
				depth: depth,
			});
		}
		for (const child of el.children) walk(child, depth + 1);
	};
	if (document.body) walk(document.body, 0);
	const stylesheets = [...document.querySelectorAll('link[rel="stylesheet"]')]
		.map(l => l.href).filter(Boolean);
	const metaTags = [...document.querySelectorAll('meta[name], meta[property]')]
		.map(m => ({name: m.getAttribute('name') || m.getAttribute('property'), content: m.getAttribute('content') || ''}));
	const iconLinks = [...document.querySelectorAll('link[rel*="icon"]')]
		.map(l => l.href).filter(Boolean);
	return {
		title: document.title || '',
		nodes: nodes,
		stylesheets: stylesheets,
		meta_tags: metaTags,
		icon_links: iconLinks,
	};
})()`

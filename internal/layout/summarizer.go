// Package layout reduces a scrape into a bounded structural digest. The
// summarizer is a pure function of its input: identical scrapes always
// produce identical summaries.
package layout

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// bandHeight is the vertical grouping granularity in CSS pixels. Nodes
// whose boxes start within the same band and share a style signature
// collapse into one block.
const bandHeight = 96

// fontBucket is the font-size grouping granularity in pixels.
const fontBucket = 4

// paletteSize caps the number of colors reported per page.
const paletteSize = 6

// Config controls summary size.
type Config struct {
	// MaxBlocks caps the number of blocks in a summary. Zero means 40.
	MaxBlocks int
}

// Summarizer implements clone.Summarizer with deterministic geometric
// clustering.
type Summarizer struct {
	maxBlocks int
}

// New constructs a Summarizer.
func New(cfg Config) *Summarizer {
	maxBlocks := cfg.MaxBlocks
	if maxBlocks <= 0 {
		maxBlocks = 40
	}
	return &Summarizer{maxBlocks: maxBlocks}
}

// Summarize clusters the extracted nodes into representative blocks and
// derives the page palette. Pages with no visible nodes yield an empty
// summary, which is still a valid synthesizer input.
func (s *Summarizer) Summarize(result clone.ScrapeResult) clone.LayoutSummary {
	summary := clone.LayoutSummary{
		Title:    result.Title,
		Viewport: result.Viewport,
		Palette:  palette(result.Nodes),
	}
	if len(result.Nodes) == 0 {
		return summary
	}

	clusters := make(map[string]*cluster)
	order := make([]string, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		key := clusterKey(node)
		c, ok := clusters[key]
		if !ok {
			c = &cluster{}
			clusters[key] = c
			order = append(order, key)
		}
		c.add(node)
	}

	blocks := make([]clone.Block, 0, len(order))
	for _, key := range order {
		blocks = append(blocks, clusters[key].toBlock(result.Viewport))
	}
	sortBlocks(blocks)
	if len(blocks) > s.maxBlocks {
		blocks = blocks[:s.maxBlocks]
	}
	summary.Blocks = blocks
	return summary
}

// clusterKey derives the grouping signature: vertical band, coarse tag
// class, bucketed font size, and text color.
func clusterKey(n clone.Node) string {
	band := int(math.Floor(n.Rect.Y / bandHeight))
	bucket := int(n.Style.FontSize) / fontBucket
	return fmt.Sprintf("%d|%s|%d|%s", band, tagClass(n.Tag), bucket, n.Style.Color)
}

// tagClass maps tags into coarse structural classes so sibling markup
// like p/span/li groups together.
func tagClass(tag string) string {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "p", "span", "li", "a", "em", "strong", "small", "blockquote", "label", "td", "th":
		return "text"
	case "img", "video", "svg", "picture", "canvas", "iframe":
		return "media"
	case "input", "button", "select", "textarea", "form":
		return "form"
	case "header", "footer", "nav", "main", "section", "article", "aside", "div", "ul", "ol", "table":
		return "container"
	default:
		return "other"
	}
}

type cluster struct {
	nodes []clone.Node
	rect  clone.Rect
}

func (c *cluster) add(n clone.Node) {
	if len(c.nodes) == 0 {
		c.rect = n.Rect
	} else {
		c.rect = union(c.rect, n.Rect)
	}
	c.nodes = append(c.nodes, n)
}

// toBlock picks the representative node: the one carrying the most text,
// falling back to the largest box. The block keeps the union geometry of
// every member.
func (c *cluster) toBlock(viewport clone.Viewport) clone.Block {
	rep := c.nodes[0]
	for _, n := range c.nodes[1:] {
		switch {
		case len(n.Text) > len(rep.Text):
			rep = n
		case len(n.Text) == len(rep.Text) && n.Rect.Area() > rep.Rect.Area():
			rep = n
		}
	}
	return clone.Block{
		Role:    roleHint(rep, c.rect, viewport),
		Tag:     rep.Tag,
		Text:    rep.Text,
		Rect:    c.rect,
		Style:   rep.Style,
		Members: len(c.nodes),
	}
}

// roleHint classifies a block by its tag, falling back to vertical
// position within the capture viewport.
func roleHint(rep clone.Node, rect clone.Rect, viewport clone.Viewport) string {
	switch rep.Tag {
	case "header":
		return "header"
	case "nav":
		return "nav"
	case "footer":
		return "footer"
	case "main", "article":
		return "main"
	case "section", "aside":
		return "section"
	}
	height := float64(viewport.Height)
	if height <= 0 {
		return "section"
	}
	switch {
	case rect.Y < bandHeight:
		return "header"
	case rect.Y > height-bandHeight:
		return "footer"
	default:
		return "section"
	}
}

// sortBlocks orders blocks the way the document flows: top to bottom,
// then left to right, then by tag for full determinism.
func sortBlocks(blocks []clone.Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		bi, bj := blocks[i], blocks[j]
		bandI := int(math.Floor(bi.Rect.Y / bandHeight))
		bandJ := int(math.Floor(bj.Rect.Y / bandHeight))
		if bandI != bandJ {
			return bandI < bandJ
		}
		if bi.Rect.X != bj.Rect.X {
			return bi.Rect.X < bj.Rect.X
		}
		return bi.Tag < bj.Tag
	})
}

// palette returns the most frequent colors on the page, text colors and
// backgrounds combined, most common first. Transparent and empty values
// are skipped; ties break lexically for determinism.
func palette(nodes []clone.Node) []string {
	counts := make(map[string]int)
	for _, n := range nodes {
		for _, color := range []string{n.Style.Color, n.Style.Background} {
			if usableColor(color) {
				counts[color]++
			}
		}
	}
	colors := make([]string, 0, len(counts))
	for color := range counts {
		colors = append(colors, color)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return colors[i] < colors[j]
	})
	if len(colors) > paletteSize {
		colors = colors[:paletteSize]
	}
	return colors
}

func usableColor(c string) bool {
	if c == "" || c == "transparent" {
		return false
	}
	// Computed styles report fully transparent backgrounds as rgba(0,0,0,0).
	return !strings.HasSuffix(strings.ReplaceAll(c, " ", ""), ",0)")
}

func union(a, b clone.Rect) clone.Rect {
	x1 := math.Min(a.X, b.X)
	y1 := math.Min(a.Y, b.Y)
	x2 := math.Max(a.X+a.W, b.X+b.W)
	y2 := math.Max(a.Y+a.H, b.Y+b.H)
	return clone.Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

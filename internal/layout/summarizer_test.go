package layout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

func node(tag, text string, y float64, opts ...func(*clone.Node)) clone.Node {
	n := clone.Node{
		Tag:  tag,
		Text: text,
		Rect: clone.Rect{X: 0, Y: y, W: 600, H: 20},
		Style: clone.NodeStyle{
			FontSize: 16,
			Color:    "rgb(0, 0, 0)",
		},
	}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

func TestSummarizeGroupsSameBandAndStyle(t *testing.T) {
	t.Parallel()

	result := clone.ScrapeResult{
		Title:    "Example",
		Viewport: clone.Viewport{Width: 1280, Height: 800},
		Nodes: []clone.Node{
			node("p", "short", 200),
			node("p", "the longest paragraph on the page", 210),
			node("p", "medium text", 220),
		},
	}
	summary := New(Config{}).Summarize(result)
	require.Len(t, summary.Blocks, 1)

	block := summary.Blocks[0]
	require.Equal(t, "the longest paragraph on the page", block.Text)
	require.Equal(t, 3, block.Members)
	require.Equal(t, 200.0, block.Rect.Y)
	require.Equal(t, 40.0, block.Rect.H)
}

func TestSummarizeSeparatesBandsAndClasses(t *testing.T) {
	t.Parallel()

	result := clone.ScrapeResult{
		Viewport: clone.Viewport{Width: 1280, Height: 800},
		Nodes: []clone.Node{
			node("h1", "Title", 10, func(n *clone.Node) { n.Style.FontSize = 32 }),
			node("p", "Body copy", 10),
			node("p", "Far below", 500),
		},
	}
	summary := New(Config{}).Summarize(result)
	require.Len(t, summary.Blocks, 3)
}

func TestSummarizeOrdersByDocumentFlow(t *testing.T) {
	t.Parallel()

	result := clone.ScrapeResult{
		Viewport: clone.Viewport{Width: 1280, Height: 800},
		Nodes: []clone.Node{
			node("footer", "bottom", 760),
			node("p", "middle", 400),
			node("header", "top", 0),
		},
	}
	summary := New(Config{}).Summarize(result)
	require.Len(t, summary.Blocks, 3)
	require.Equal(t, "header", summary.Blocks[0].Role)
	require.Equal(t, "section", summary.Blocks[1].Role)
	require.Equal(t, "footer", summary.Blocks[2].Role)
}

func TestSummarizeCapsBlocks(t *testing.T) {
	t.Parallel()

	var nodes []clone.Node
	for i := 0; i < 50; i++ {
		nodes = append(nodes, node("p", fmt.Sprintf("row %d", i), float64(i*bandHeight)))
	}
	summary := New(Config{MaxBlocks: 10}).Summarize(clone.ScrapeResult{
		Viewport: clone.Viewport{Width: 1280, Height: 800},
		Nodes:    nodes,
	})
	require.Len(t, summary.Blocks, 10)
	// The cap keeps the topmost bands.
	require.Equal(t, 0.0, summary.Blocks[0].Rect.Y)
}

func TestSummarizeEmptyPage(t *testing.T) {
	t.Parallel()

	summary := New(Config{}).Summarize(clone.ScrapeResult{
		Title:    "Blank",
		Viewport: clone.Viewport{Width: 1280, Height: 800},
	})
	require.True(t, summary.Empty())
	require.Equal(t, "Blank", summary.Title)
	require.Empty(t, summary.Palette)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	t.Parallel()

	result := clone.ScrapeResult{
		Viewport: clone.Viewport{Width: 1280, Height: 800},
		Nodes: []clone.Node{
			node("h1", "Title", 0),
			node("p", "one", 120),
			node("p", "two", 130, func(n *clone.Node) { n.Style.Color = "rgb(80, 80, 80)" }),
			node("footer", "fin", 780),
		},
	}
	s := New(Config{})
	first := s.Summarize(result)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, s.Summarize(result))
	}
}

func TestPaletteFrequencyOrder(t *testing.T) {
	t.Parallel()

	nodes := []clone.Node{
		node("p", "a", 0, func(n *clone.Node) { n.Style.Color = "rgb(1, 1, 1)" }),
		node("p", "b", 0, func(n *clone.Node) { n.Style.Color = "rgb(1, 1, 1)" }),
		node("p", "c", 0, func(n *clone.Node) {
			n.Style.Color = "rgb(2, 2, 2)"
			n.Style.Background = "rgba(0, 0, 0, 0)"
		}),
	}
	colors := palette(nodes)
	require.Equal(t, []string{"rgb(1, 1, 1)", "rgb(2, 2, 2)"}, colors)
}

func TestRoleHintFallsBackToPosition(t *testing.T) {
	t.Parallel()

	viewport := clone.Viewport{Width: 1280, Height: 800}
	top := roleHint(clone.Node{Tag: "div"}, clone.Rect{Y: 10, W: 10, H: 10}, viewport)
	require.Equal(t, "header", top)
	bottom := roleHint(clone.Node{Tag: "div"}, clone.Rect{Y: 780, W: 10, H: 10}, viewport)
	require.Equal(t, "footer", bottom)
}

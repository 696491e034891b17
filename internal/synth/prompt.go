package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// Per-section byte budgets keep the prompt inside the model context even
// for heavy pages. Blocks carry the structure so they get the most room.
const (
	maxBlocksBytes = 24 * 1024
	maxCSSBytes    = 16 * 1024
)

const systemPrompt = `You are an expert front-end developer. You rebuild web pages from a structural description of their layout. Respond with a single complete HTML document, inline CSS in a <style> tag, and no commentary. Do not use external resources.`

// buildUserPrompt renders the layout summary and captured CSS into the
// instruction handed to the model.
func buildUserPrompt(summary clone.LayoutSummary, css string) string {
	var b strings.Builder

	b.WriteString("Recreate the following page as a single HTML document.\n\n")
	if summary.Title != "" {
		fmt.Fprintf(&b, "Page title: %s\n", summary.Title)
	}
	if summary.Viewport.Width > 0 {
		fmt.Fprintf(&b, "Captured at viewport: %dx%d\n", summary.Viewport.Width, summary.Viewport.Height)
	}
	if len(summary.Palette) > 0 {
		fmt.Fprintf(&b, "Dominant colors: %s\n", strings.Join(summary.Palette, ", "))
	}

	b.WriteString("\nLayout blocks, in document order (role, tag, geometry, style, sample text):\n")
	if summary.Empty() {
		b.WriteString("(the page rendered no visible content; produce a minimal valid page)\n")
	} else {
		b.WriteString(renderBlocks(summary.Blocks))
	}

	if css != "" {
		b.WriteString("\nExtracted CSS from the original page (may be truncated):\n```css\n")
		b.WriteString(truncate(css, maxCSSBytes))
		b.WriteString("\n```\n")
	}

	b.WriteString("\nMatch the structure, spacing, and palette as closely as possible. Use placeholder text where sample text is empty.")
	return b.String()
}

func renderBlocks(blocks []clone.Block) string {
	var b strings.Builder
	for i, block := range blocks {
		line, err := json.Marshal(block)
		if err != nil {
			continue
		}
		if b.Len()+len(line) > maxBlocksBytes {
			fmt.Fprintf(&b, "(%d more blocks omitted)\n", len(blocks)-i)
			break
		}
		b.Write(line)
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

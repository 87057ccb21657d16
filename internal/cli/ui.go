package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/feedload/pkg/feed"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleFresh = lipgloss.NewStyle().Foreground(colorGreen)
	styleStale = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconFresh   = "fresh"
	iconStale   = "stale"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(16)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Feed Output
// =============================================================================

// writeFeed prints the channel header followed by one line per item.
// At most limit items are printed when limit is positive.
func writeFeed(w io.Writer, f *feed.Feed, limit int) {
	title := f.Text("title")
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintln(w, StyleTitle.Render(title))
	if link := f.Text("link"); link != "" {
		fmt.Fprintln(w, StyleLink.Render(link))
	}
	if desc := f.Text("description"); desc != "" {
		fmt.Fprintln(w, StyleDim.Render(truncate(desc, 100)))
	}
	fmt.Fprintln(w)

	items := f.Items()
	for i, it := range items {
		if limit > 0 && i >= limit {
			fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("  … %d more", len(items)-limit)))
			break
		}
		writeItem(w, it)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, StyleDim.Render("  no items"))
	}
}

// writeItem prints a single item summary line.
func writeItem(w io.Writer, it *feed.Item) {
	title := it.Title()
	if title == "" {
		title = "(untitled)"
	}
	line := "  " + StyleValue.Render(title)
	if date := it.Text(feed.FieldDate); date != "" {
		line += StyleDim.Render(" · ") + StyleNumber.Render(date)
	}
	if age := it.HumanDifference(); age != "" {
		line += StyleDim.Render(" (" + age + ")")
	}
	fmt.Fprintln(w, line)
}

// printItemDetail prints every field of an item as key-value lines.
func printItemDetail(it *feed.Item) {
	fmt.Println(StyleTitle.Render(it.Title()))
	for _, c := range it.Element().Children() {
		if c.Name().Prefix != "" || c.Tag() == "title" {
			continue
		}
		value := c.Content()
		if value == "" {
			continue
		}
		printKeyValue(c.Tag(), truncate(value, 200))
	}
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/feedload/pkg/feed"
)

// List styles
var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// ItemListModel - Interactive item selection
// =============================================================================

// ItemListModel is the bubbletea model for interactive item selection.
type ItemListModel struct {
	Title    string
	Items    []*feed.Item
	Cursor   int
	Selected *feed.Item
	Height   int
	Offset   int
}

// NewItemListModel creates a new item list model.
func NewItemListModel(title string, items []*feed.Item) ItemListModel {
	return ItemListModel{
		Title:  title,
		Items:  items,
		Height: 15,
	}
}

func (m ItemListModel) Init() tea.Cmd {
	return nil
}

func (m ItemListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Items)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			if n := len(m.Items); n > 0 {
				m.Cursor = n - 1
				m.Offset = max(0, n-m.Height)
			}
		case "enter":
			if len(m.Items) == 0 {
				return m, nil
			}
			m.Selected = m.Items[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ItemListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Items))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		it := m.Items[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		date := it.Text(feed.FieldDate)
		if date == "" {
			date = "—"
		}
		age := it.HumanDifference()
		if age == "" {
			age = "—"
		}
		rows = append(rows, []string{cursor, truncate(it.Title(), 60), date, age})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Title", "Date", "Age").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			idx := m.Offset + row
			if idx >= len(m.Items) {
				return lipgloss.NewStyle()
			}
			dated := m.Items[idx].HumanDifference() != ""
			isCurrent := idx == m.Cursor

			base := lipgloss.NewStyle()
			if col >= 2 {
				if isCurrent {
					base = base.Foreground(colorGray)
				} else {
					base = base.Foreground(colorDim)
				}
			}

			switch {
			case isCurrent && col < 2:
				return base.Foreground(colorGreen).Bold(true)
			case isCurrent:
				return base.Bold(true)
			case !dated && col < 2:
				return base.Foreground(colorGray)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Items))))

	return b.String()
}

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:               "browse <url|name>",
		Short:             "Browse a feed's items interactively",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeFeedNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.load(cmd, args[0], opts)
			if err != nil {
				return err
			}
			items := f.Items()
			if len(items) == 0 {
				printWarning("Feed has no items")
				return nil
			}

			title := f.Text("title")
			if title == "" {
				title = args[0]
			}
			final, err := tea.NewProgram(NewItemListModel(title, items), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(ItemListModel); ok && m.Selected != nil {
				printItemDetail(m.Selected)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.rss, "rss", false, "accept documents without a channel")

	return cmd
}

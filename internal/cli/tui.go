package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// SectionBrowserModel - Interactive section browsing
// =============================================================================

// SectionBrowserModel is the bubbletea model for browsing the sections of a
// parsed configuration. The left pane lists sections, the right pane shows
// the properties of the one under the cursor.
type SectionBrowserModel struct {
	Sections []*smileconf.Section
	Cursor   int
	Height   int
	Offset   int
}

// NewSectionBrowserModel creates a browser over the sections of doc.
func NewSectionBrowserModel(doc *smileconf.Document) SectionBrowserModel {
	return SectionBrowserModel{
		Sections: doc.Sections(),
		Height:   15,
	}
}

func (m SectionBrowserModel) Init() tea.Cmd {
	return nil
}

func (m SectionBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Sections)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			if n := len(m.Sections); n > 0 {
				m.Cursor = n - 1
				m.Offset = max(0, n-m.Height)
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
		if m.Cursor >= m.Offset+m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m, nil
}

func (m SectionBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Sections"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	if len(m.Sections) == 0 {
		b.WriteString(listDimStyle.Render("  no sections"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Sections))
	var list strings.Builder
	for i := m.Offset; i < end; i++ {
		s := m.Sections[i]
		var line string
		switch {
		case i == m.Cursor:
			line = listSelectedStyle.Render("▸ "+s.Name) + " " + listDimStyle.Render(s.Type)
		case s.Type == dataflow.ManagerType:
			line = listDimStyle.Render("  " + s.Name + " " + s.Type)
		default:
			line = listNormalStyle.Render("  "+s.Name) + " " + listDimStyle.Render(s.Type)
		}
		list.WriteString(line)
		list.WriteString("\n")
	}

	left := lipgloss.NewStyle().PaddingRight(2).Render(list.String())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, propertyTable(m.Sections[m.Cursor])))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Sections))))

	return b.String()
}

// Selected returns the section under the cursor, or nil when there are none.
func (m SectionBrowserModel) Selected() *smileconf.Section {
	if len(m.Sections) == 0 {
		return nil
	}
	return m.Sections[m.Cursor]
}

func propertyTable(s *smileconf.Section) string {
	props := s.Properties()
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		rows = append(rows, []string{p.Name, p.Value.String()})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("Property", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleTableHeader
			}
			if row >= 0 && row < len(props) && strings.HasSuffix(props[row].Name, dataflow.LevelSuffix) {
				return styleReader
			}
			if col == 1 {
				return StyleValue
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})
	return t.Render()
}

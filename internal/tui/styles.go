package tui

import "github.com/charmbracelet/lipgloss"

var (
	// headerStyle is the style for the path shown above the listing
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginLeft(1)

	// itemStyle is the style for unselected rows
	itemStyle = lipgloss.NewStyle().PaddingLeft(2)

	// selectedItemStyle marks the row under the cursor
	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(0).
				Foreground(lipgloss.Color("170"))

	// messageStyle is used for the loading, empty and no-workspace texts
	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2)

	// errorStyle is the style for inline errors and failed actions
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			MarginLeft(2)

	// statusStyle is the style for the status line
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2)

	// previewBorderStyle frames the file preview
	previewBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)

	// helpStyle is the style for the key help line
	helpStyle = lipgloss.NewStyle().MarginLeft(2)
)

// selectedMarker is drawn before the row under the cursor
const selectedMarker = "▸ "

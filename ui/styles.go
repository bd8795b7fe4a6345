package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#3C3C3C")
	accentColor    = lipgloss.Color("#04B575")
	warningColor   = lipgloss.Color("#FFCC00")
	errorColorVal  = lipgloss.Color("#FF6B6B")
	textColor      = lipgloss.Color("#FAFAFA")
	dimColor       = lipgloss.Color("#626262")

	// Protocol colors
	tcpColor    = lipgloss.Color("#7CB9E8")
	udpColor    = lipgloss.Color("#72BF6A")
	icmpColor   = lipgloss.Color("#FFB347")
	ipv6Color   = lipgloss.Color("#DDA0DD")
	sourceColor = lipgloss.Color("#87CEEB")
	destColor   = lipgloss.Color("#98FB98")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(secondaryColor).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 2)

	tabStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Background(secondaryColor).
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor)

	normalStyle = lipgloss.NewStyle().
			Foreground(textColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	collapsedCellStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(warningColor)

	cursorCellStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(textColor).
			Background(primaryColor)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(secondaryColor).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColorVal).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	sourceBarStyle = lipgloss.NewStyle().Foreground(sourceColor)
	destBarStyle   = lipgloss.NewStyle().Foreground(destColor)
	sparkStyle     = lipgloss.NewStyle().Foreground(accentColor)
)

func getProtocolStyle(protocol string) lipgloss.Style {
	switch protocol {
	case "TCP":
		return lipgloss.NewStyle().Foreground(tcpColor)
	case "UDP":
		return lipgloss.NewStyle().Foreground(udpColor)
	case "ICMPv4", "ICMPv6", "ICMP":
		return lipgloss.NewStyle().Foreground(icmpColor)
	case "IPv6":
		return lipgloss.NewStyle().Foreground(ipv6Color)
	default:
		return normalStyle
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	rep     *report
	devices table.Model
}

func newInteractiveModel(rep *report) *interactiveModel {
	rows := make([]table.Row, len(rep.devices))
	for i, d := range rep.devices {
		rows[i] = table.Row{
			strconv.Itoa(i),
			d.props.DeviceName,
			deviceTypeName(d.props.DeviceType),
			d.props.APIVersion.String(),
			strconv.Itoa(len(d.families)),
		}
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Device", Width: 28},
			{Title: "Type", Width: 14},
			{Title: "API", Width: 10},
			{Title: "Families", Width: 8},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows), 8)+1),
	)
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4"))
	t.SetStyles(styles)
	return &interactiveModel{rep: rep, devices: t}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.devices, cmd = m.devices.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("GPU Info"))
	b.WriteString(fmt.Sprintf(" instance %s, %d layers, %d extensions\n\n",
		m.rep.version, len(m.rep.layers), len(m.rep.extensions)))

	if len(m.rep.devices) == 0 {
		b.WriteString("No physical devices.\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	b.WriteString(tableStyle.Render(m.devices.View()))
	b.WriteString("\n\n")

	d := m.rep.devices[m.devices.Cursor()]
	field := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	field("Vendor/ID", fmt.Sprintf("%#x/%#x", d.props.VendorID, d.props.DeviceID))
	field("Features", strings.Join(d.features.Enabled, ", "))
	for i, f := range d.families {
		field(fmt.Sprintf("Family %d", i), fmt.Sprintf("%d x %s", f.QueueCount, queueFlagsString(f.QueueFlags)))
	}
	field("Queues", fmt.Sprintf("%d verified", d.queues))
	names := make([]string, len(d.extensions))
	for i, e := range d.extensions {
		names[i] = e.ExtensionName
	}
	field("Extensions", strings.Join(names, ", "))

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select device • q quit"))
	return b.String()
}

func runInteractive(rep *report) error {
	p := tea.NewProgram(newInteractiveModel(rep), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

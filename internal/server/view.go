package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zrecord/internal/record"
	"github.com/zarlcorp/zrecord/internal/store"
)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(zstyle.ZburnAccent).
	Padding(0, 1)

// truncate shortens s to width runes, ending with "..." when cut.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func field(label, value string) string {
	return zstyle.MutedText.Render(fmt.Sprintf("%-9s", label)) + " " + value
}

func renderProfile(name string, r record.Record) string {
	lines := []string{
		zstyle.Subtitle.Render("user profile"),
		"",
		field("name", name),
		field("age", fmt.Sprint(r.Age)),
		field("email", r.Email),
		field("phone", r.DisplayPhone()),
		field("created", r.CreatedAt.Format("2006-01-02")),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderTable(entries []store.Entry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Name", "Age", "Email", "Phone")
	for _, e := range entries {
		t.Row(
			truncate(e.Name, 12),
			fmt.Sprint(e.Age),
			truncate(e.Email, 26),
			truncate(e.DisplayPhone(), 12),
		)
	}
	return t.Render()
}

type stats struct {
	users      int
	operations int
	uptime     time.Duration
	dataFile   string
}

func formatUptime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}

func renderStats(st stats) string {
	lines := []string{
		zstyle.Subtitle.Render("server statistics"),
		"",
		field("users", fmt.Sprint(st.users)),
		field("ops", fmt.Sprint(st.operations)),
		field("uptime", formatUptime(st.uptime)),
		field("data", st.dataFile),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderBanner(records int) string {
	title := zstyle.Title.Render("zrecord")
	lines := []string{
		title + " " + zstyle.MutedText.Render("record server"),
		"",
		zstyle.StatusOK.Render("✓") + fmt.Sprintf(" database: %d records loaded", records),
		zstyle.StatusOK.Render("✓") + " backup: active",
		zstyle.StatusOK.Render("✓") + " audit log: enabled",
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

var helpLines = [][2]string{
	{"ADD", "register new user"},
	{"GET", "retrieve user details"},
	{"UPDATE", "modify user information"},
	{"DELETE", "remove user"},
	{"LIST", "display all users"},
	{"SEARCH", "search users"},
	{"STATS", "server statistics"},
	{"BACKUP", "create backup"},
	{"GENERATE", "create test data"},
	{"CLEAR", "clear database (requires confirmation)"},
	{"HELP", "this help message"},
	{"EXIT", "shut down"},
}

func renderHelp() string {
	var b strings.Builder
	b.WriteString(zstyle.Subtitle.Render("available commands") + "\n")
	for _, h := range helpLines {
		fmt.Fprintf(&b, "  %-9s %s\n", h[0], zstyle.MutedText.Render(h[1]))
	}
	return b.String()
}

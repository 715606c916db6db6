package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/infopanel/internal/config"
)

type savePhase int

const (
	saveHidden  savePhase = iota
	savePreview           // diff shown, waiting for confirm
	saveResult            // outcome shown until any key
)

type diffKind int

const (
	diffContext diffKind = iota
	diffRemoved
	diffAdded
	diffSection
)

type diffLine struct {
	kind diffKind
	text string
}

// SaveOverlay previews pending config changes and writes them on confirm.
type SaveOverlay struct {
	phase    savePhase
	lines    []diffLine
	sections int
	scroll   int
	err      error
	reloaded bool
}

func (s SaveOverlay) Active() bool {
	return s.phase != saveHidden
}

// Show diffs current against original and opens the preview.
func (s *SaveOverlay) Show(original, current *config.Config) {
	*s = SaveOverlay{lines: computeDiffLines(original, current)}
	if len(s.lines) == 0 {
		s.phase = saveResult
		s.err = fmt.Errorf("no changes to save")
		return
	}
	for _, l := range s.lines {
		if l.kind == diffSection {
			s.sections++
		}
	}
	s.phase = savePreview
}

// SaveSucceeded reports whether the last save completed without error.
func (s SaveOverlay) SaveSucceeded() bool {
	return s.phase == saveResult && s.err == nil
}

// Update handles input while the overlay is active. On confirm the config is
// written to path and a connected daemon is asked to reload it.
func (s SaveOverlay) Update(msg tea.Msg, cfg *config.Config, path string, client Daemon, connected bool) SaveOverlay {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s
	}
	if s.phase == saveResult {
		s.phase = saveHidden
		return s
	}

	switch km.String() {
	case "esc", "n":
		s.phase = saveHidden
	case "enter", "y":
		s.err = saveConfig(cfg, path)
		if s.err == nil && connected && client != nil {
			s.reloaded = client.Reload() == nil
		}
		s.phase = saveResult
	case "up", "k":
		s.scroll = max(s.scroll-1, 0)
	case "down", "j":
		s.scroll++
	case "pgdown", " ":
		s.scroll += 10
	case "pgup":
		s.scroll = max(s.scroll-10, 0)
	}
	return s
}

func (s SaveOverlay) View(width, height int) string {
	switch s.phase {
	case savePreview:
		return s.viewPreview(width, height)
	case saveResult:
		return s.viewResult(width, height)
	}
	return ""
}

var (
	diffAddStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	diffRemoveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffContextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	diffSectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	overlayFootStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (s SaveOverlay) viewPreview(areaW, areaH int) string {
	boxW := clamp(areaW-8, 30, 80)
	innerW := max(boxW-6, 10)

	// Title, footer, blank lines, border and padding take ten rows.
	rows := max(areaH-10, 3)
	off := clamp(s.scroll, 0, max(len(s.lines)-rows, 0))
	end := min(off+rows, len(s.lines))

	var body []string
	for _, dl := range s.lines[off:end] {
		body = append(body, renderDiffLine(dl, innerW-2))
	}

	noun := "sections"
	if s.sections == 1 {
		noun = "section"
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).
		Render(fmt.Sprintf("Save Config: %d changed %s", s.sections, noun))
	footer := overlayFootStyle.Render("enter: save  esc: cancel  j/k: scroll")
	return overlayBox(areaW, areaH, boxW, title+"\n\n"+strings.Join(body, "\n")+"\n\n"+footer)
}

func renderDiffLine(dl diffLine, width int) string {
	t := dl.text
	if r := []rune(t); len(r) > width {
		t = string(r[:width])
	}
	switch dl.kind {
	case diffSection:
		return diffSectionStyle.Render(t)
	case diffAdded:
		return diffAddStyle.Render("+ " + t)
	case diffRemoved:
		return diffRemoveStyle.Render("- " + t)
	default:
		return diffContextStyle.Render("  " + t)
	}
}

func (s SaveOverlay) viewResult(areaW, areaH int) string {
	var msg string
	if s.err != nil {
		msg = diffRemoveStyle.Bold(true).Render("Error: " + s.err.Error())
	} else {
		msg = diffAddStyle.Bold(true).Render("Config saved")
		if s.reloaded {
			msg += "\n" + diffAddStyle.Render("Daemon reloaded")
		}
	}
	footer := overlayFootStyle.Render("press any key to dismiss")
	return overlayBox(areaW, areaH, clamp(areaW-8, 30, 60), msg+"\n\n"+footer)
}

func overlayBox(areaW, areaH, boxW int, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(boxW).
		Render(content)
	return lipgloss.Place(areaW, areaH, lipgloss.Center, lipgloss.Center, box)
}

// computeDiffLines compares the global settings and then each profile by id,
// so an edit to one profile shows up under that profile's header. Nil means
// the configs marshal identically.
func computeDiffLines(original, current *config.Config) []diffLine {
	if original == nil || current == nil {
		return nil
	}

	var out []diffLine
	section := func(title string, before, after []string) {
		if d := lineDiff(before, after); d != nil {
			out = append(out, diffLine{kind: diffSection, text: title})
			out = append(out, d...)
		}
	}

	section("settings", yamlLines(settingsOnly(original)), yamlLines(settingsOnly(current)))
	for _, id := range profileIDs(original, current) {
		var before, after []string
		if p, ok := original.Profile(id); ok {
			before = yamlLines(p)
		}
		if p, ok := current.Profile(id); ok {
			after = yamlLines(p)
		}
		title := "profile " + id
		switch {
		case before == nil:
			title += " (new)"
		case after == nil:
			title += " (removed)"
		}
		section(title, before, after)
	}
	return out
}

func settingsOnly(c *config.Config) config.Config {
	s := *c
	s.Profiles = nil
	return s
}

// profileIDs lists current's profiles in order, then the ones it dropped.
func profileIDs(original, current *config.Config) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range current.Profiles {
		ids = append(ids, p.ID)
		seen[p.ID] = true
	}
	for _, p := range original.Profiles {
		if !seen[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func yamlLines(v any) []string {
	data, err := yaml.Marshal(v)
	if err != nil {
		return []string{"# " + err.Error()}
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// lineDiff is a longest common subsequence diff of a against b, trimmed to
// two lines of context around each change. Nil means no changes.
func lineDiff(a, b []string) []diffLine {
	// lcs[i][j] is the LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var all []diffLine
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i < len(a) && j < len(b) && a[i] == b[j]:
			all = append(all, diffLine{kind: diffContext, text: a[i]})
			i++
			j++
		case j == len(b) || (i < len(a) && lcs[i+1][j] >= lcs[i][j+1]):
			all = append(all, diffLine{kind: diffRemoved, text: a[i]})
			i++
		default:
			all = append(all, diffLine{kind: diffAdded, text: b[j]})
			j++
		}
	}
	return withContext(all, 2)
}

// withContext keeps changed lines and n lines either side. Skipped runs
// become a single "..." line.
func withContext(lines []diffLine, n int) []diffLine {
	keep := make([]bool, len(lines))
	changed := false
	for i, l := range lines {
		if l.kind == diffContext {
			continue
		}
		changed = true
		for k := max(i-n, 0); k <= min(i+n, len(lines)-1); k++ {
			keep[k] = true
		}
	}
	if !changed {
		return nil
	}

	var out []diffLine
	for i, l := range lines {
		if !keep[i] {
			continue
		}
		if i > 0 && !keep[i-1] {
			out = append(out, diffLine{kind: diffContext, text: "..."})
		}
		out = append(out, l)
	}
	return out
}

func saveConfig(cfg *config.Config, path string) error {
	if path == "" {
		return cfg.Save()
	}
	return cfg.SaveTo(path)
}

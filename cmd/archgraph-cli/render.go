package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	riskStyles = map[algorithms.RiskLevel]lipgloss.Style{
		algorithms.RiskLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		algorithms.RiskMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		algorithms.RiskHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800")).Bold(true),
		algorithms.RiskCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#FF0000")).Bold(true),
	}
)

func riskBadge(level algorithms.RiskLevel) string {
	style, ok := riskStyles[level]
	if !ok {
		style = mutedStyle
	}
	return style.Render(strings.ToUpper(string(level)))
}

func renderSnapshot(w io.Writer, stats graph.Stats) {
	lines := []string{
		fmt.Sprintf("Entities:      %d", stats.Entities),
		fmt.Sprintf("Relationships: %d", stats.Relationships),
	}
	if stats.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("Skipped:       %d", stats.Skipped))
	}
	lines = append(lines, fmt.Sprintf("Built in:      %s", stats.BuildDuration))
	fmt.Fprintln(w, statsBoxStyle.Render(strings.Join(lines, "\n")))
}

func renderImpact(w io.Writer, name string, res *algorithms.ImpactResult) {
	fmt.Fprintln(w, headerStyle.Render("Impact: "+name))
	fmt.Fprintf(w, "Criticality %.1f %s   max strength %.2f\n",
		res.Criticality, riskBadge(res.RiskLevel), res.MaxStrength)
	fmt.Fprintf(w, "Upstream   %d (direct %d): %s\n",
		len(res.Upstream), res.DirectUpstream, listOrNone(res.Upstream))
	fmt.Fprintf(w, "Downstream %d (direct %d): %s\n",
		len(res.Downstream), res.DirectDownstream, listOrNone(res.Downstream))

	switch {
	case res.SafeToRefactor:
		fmt.Fprintln(w, riskStyles[algorithms.RiskLow].Render("Nothing depends on this entity; safe to refactor."))
	case res.ConsiderDecomposing:
		fmt.Fprintln(w, riskStyles[algorithms.RiskHigh].Render("Many dependents; consider decomposing."))
	}
}

// renderChains prints the traversal as an indented tree by level.
func renderChains(w io.Writer, res *algorithms.ChainResult) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Dependency chain (depth %d)", res.Depth)))

	children := make(map[string][]algorithms.ChainLink)
	for _, l := range res.Links {
		children[l.Source] = append(children[l.Source], l)
	}
	nodes := make(map[string]algorithms.ChainNode, len(res.Nodes))
	for _, n := range res.Nodes {
		nodes[n.ID] = n
	}
	if len(res.Nodes) == 0 {
		return
	}

	printed := make(map[string]bool)
	var walk func(id, via string, indent int)
	walk = func(id, via string, indent int) {
		n := nodes[id]
		prefix := strings.Repeat("  ", indent)
		if via != "" {
			prefix += mutedStyle.Render(via+" ") + "→ "
		}
		fmt.Fprintf(w, "%s%s %s %s\n", prefix, n.Name, mutedStyle.Render("("+n.ID+")"), riskBadge(n.RiskLevel))
		if printed[id] {
			return
		}
		printed[id] = true
		for _, l := range children[id] {
			// Only expand edges that descend one level; others point back into
			// nodes already placed in the tree.
			if child, ok := nodes[l.Target]; ok && child.Level == n.Level+1 && !printed[l.Target] {
				walk(l.Target, l.Type.String(), indent+1)
			}
		}
	}
	walk(res.Nodes[0].ID, "", 0)
}

func renderPaths(w io.Writer, paths []algorithms.CriticalPath) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Critical paths (%d)", len(paths))))
	if len(paths) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No paths above the threshold."))
		return
	}
	for i, p := range paths {
		level := algorithms.ClassifyRisk(p.RiskScore)
		fmt.Fprintf(w, "%2d. %5.1f %s  %s\n", i+1, p.RiskScore, riskBadge(level), strings.Join(p.Cards, " → "))
	}
}

func renderCycles(w io.Writer, report *engine.CycleReport) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Dependency cycles (%d)", report.Stats.TotalCycles)))
	if len(report.Cycles) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No cycles."))
		return
	}
	for _, c := range report.Cycles {
		loop := append(append([]string{}, c...), c[0])
		fmt.Fprintln(w, "  "+strings.Join(loop, " → "))
	}
	fmt.Fprintf(w, "%s\n", mutedStyle.Render(fmt.Sprintf(
		"shortest %d, longest %d, average %.1f",
		report.Stats.ShortestCycle, report.Stats.LongestCycle, report.Stats.AverageLength)))
	fmt.Fprintf(w, "Tangles (%d entities):\n", algorithms.TangledEntities(report.Tangles))
	for _, t := range report.Tangles {
		fmt.Fprintln(w, "  {"+strings.Join(t, ", ")+"}")
	}
}

func renderTypes(w io.Writer, types []algorithms.TypeSummary) {
	fmt.Fprintln(w, titleStyle.Render("Relationship types"))
	sorted := append([]algorithms.TypeSummary(nil), types...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	for _, t := range sorted {
		marker := " "
		if t.Dependency {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-16s %5d  %s\n", marker, t.Type, t.Count, mutedStyle.Render(t.Description))
	}
	fmt.Fprintln(w, mutedStyle.Render("* dependency types"))
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return mutedStyle.Render("none")
	}
	return strings.Join(ids, ", ")
}

package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/graph"
	"github.com/AlgoNouir/atomation/internal/ui"
)

// ASCIIDAG prints the dependency graph wave by wave, each task followed by
// the tasks it constrains.
func ASCIIDAG(w io.Writer, g *graph.TaskGraph, result *cpm.CPMResult) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, wave := range result.Waves {
		fmt.Fprintf(w, "%s 🌊 Wave %d %s\n", ui.Cyan("──"), wave.Index+1, ui.Cyan("──────────────────────────────"))
		for _, id := range wave.TaskIDs {
			critical := result.IsCritical(id)
			fmt.Fprintf(w, "  %s [%s] %s\n", ui.CriticalMark(critical), ui.BoldMagenta(id), g.Tasks[id].Title)

			for _, e := range g.Adj[id] {
				arrow := ui.Dim("└──→")
				if critical && result.IsCritical(e.To) {
					arrow = ui.BoldYellow("└══→")
				}
				fmt.Fprintf(w, "      %s %s %s\n", arrow, ui.Magenta(e.To), ui.Dim(string(e.Type)))
			}
		}
		fmt.Fprintln(w)
	}

	if len(g.Dangling) > 0 {
		fmt.Fprintf(w, "%s\n", ui.Yellow("Ignored dependencies:"))
		for _, d := range g.Dangling {
			fmt.Fprintf(w, "  %s %s → %s\n", ui.Yellow("?"), d.From, d.To)
		}
	}
}

// DOT writes the dependency graph in Graphviz format. Critical tasks and the
// edges between them are drawn in red; non-FS edges carry their type as a
// label.
func DOT(w io.Writer, g *graph.TaskGraph, result *cpm.CPMResult) error {
	var b strings.Builder
	b.WriteString("digraph atomation {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")
	b.WriteString("\n")

	for _, id := range result.TopoOrder {
		task := g.Tasks[id]
		label := fmt.Sprintf("%s\\n%s", dotEscape(id), dotEscape(task.Title))
		attrs := fmt.Sprintf(`label="%s"`, label)
		if result.IsCritical(id) {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(&b, "  %q [%s];\n", id, attrs)
	}

	b.WriteString("\n")

	for _, from := range result.TopoOrder {
		for _, e := range g.Adj[from] {
			var attrs []string
			if e.Type != graph.FinishToStart {
				attrs = append(attrs, fmt.Sprintf("label=%q", string(e.Type)))
			}
			if result.IsCritical(e.From) && result.IsCritical(e.To) {
				attrs = append(attrs, "color=red", "penwidth=2")
			}
			style := ""
			if len(attrs) > 0 {
				style = " [" + strings.Join(attrs, ", ") + "]"
			}
			fmt.Fprintf(&b, "  %q -> %q%s;\n", e.From, e.To, style)
		}
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

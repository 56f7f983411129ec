// Package output renders profiler reports for the terminal.
package output

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/xlab/treeprint"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/report"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatTree  Format = "tree"
	FormatAI    Format = "ai"
	FormatTSV   Format = "tsv"
	FormatJSON  Format = "json"
)

// Formats lists every view accepted by ParseFormat.
var Formats = []Format{FormatTable, FormatTree, FormatAI, FormatTSV, FormatJSON}

// ParseFormat resolves a view name. The empty string selects the table.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTable, nil
	}
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// DefaultLimit caps the rows of the table and ai views.
const DefaultLimit = 20

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)
	hotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Formatter handles output formatting.
type Formatter struct {
	format    Format
	writer    io.Writer
	sparkline *SparklineTracker
	limit     int
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
		limit:  DefaultLimit,
	}
}

// SetSparklineTracker adds an allocation trend column to the memory table.
func (f *Formatter) SetSparklineTracker(s *SparklineTracker) {
	f.sparkline = s
}

// SetLimit caps the rows per view; zero or less shows every method.
func (f *Formatter) SetLimit(n int) {
	f.limit = n
}

// Render outputs the report in the configured format.
func (f *Formatter) Render(rep *report.Report) error {
	switch f.format {
	case FormatJSON:
		return report.Encode(f.writer, rep, report.FormatJSON)
	case FormatTSV:
		return report.Encode(f.writer, rep, report.FormatTSV)
	case FormatTree:
		return f.renderTree(rep)
	case FormatAI:
		return f.renderAI(rep)
	default:
		return f.renderTable(rep)
	}
}

func (f *Formatter) rows(n int) int {
	if f.limit > 0 && n > f.limit {
		return f.limit
	}
	return n
}

func seconds(s float64) string {
	return clock.Tick(math.Round(s * 1e6)).Duration().String()
}

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
}

// renderTable outputs both views as styled tables.
func (f *Formatter) renderTable(rep *report.Report) error {
	fmt.Fprintln(f.writer, titleStyle.Render("Time"))
	timeRows := make([][]string, f.rows(len(rep.Time.Methods)))
	for i := range timeRows {
		m := rep.Time.Methods[i]
		timeRows[i] = []string{
			m.Name,
			seconds(m.TotalTime),
			seconds(m.Time),
			humanize.Comma(int64(m.Calls)),
		}
	}
	fmt.Fprintln(f.writer, newTable([]string{"METHOD", "TOTAL", "AVERAGE", "CALLS"}, timeRows))
	fmt.Fprintln(f.writer)

	fmt.Fprintln(f.writer, titleStyle.Render("Memory"))
	headers := []string{"METHOD", "ALLOCATED", "CALLS", "OBJECTS"}
	if f.sparkline != nil {
		headers = append(headers, "TREND")
	}
	memRows := make([][]string, f.rows(len(rep.Memory.Methods)))
	for i := range memRows {
		m := rep.Memory.Methods[i]
		var objects uint64
		for _, o := range m.Objects {
			objects += o.Count
		}
		row := []string{
			m.Name,
			humanize.IBytes(m.TotalSize),
			humanize.Comma(int64(m.Calls)),
			humanize.Comma(int64(objects)),
		}
		if f.sparkline != nil {
			row = append(row, f.sparkline.Sparkline(m.Name))
		}
		memRows[i] = row
	}
	fmt.Fprintln(f.writer, newTable(headers, memRows))

	if hidden := len(rep.Time.Methods) - len(timeRows); hidden > 0 {
		fmt.Fprintln(f.writer, dimStyle.Render(fmt.Sprintf("%d more methods not shown", hidden)))
	}
	return nil
}

func nodeLabel(n report.Node) string {
	label := fmt.Sprintf("%s  %s total, %d calls", n.Name, n.TotalTime.Duration(), n.Calls)
	if n.Bytes > 0 {
		label += ", " + humanize.IBytes(n.Bytes)
	}
	return label
}

// renderTree outputs the merged call tree.
func (f *Formatter) renderTree(rep *report.Report) error {
	nodes := rep.Nodes()
	children := make(map[int][]int, len(nodes))
	for i, n := range nodes {
		children[n.Parent] = append(children[n.Parent], i)
	}

	tree := treeprint.New()
	type branch struct {
		idx int
		treeprint.Tree
	}
	var remaining []branch
	for _, idx := range children[-1] {
		remaining = append(remaining, branch{idx: idx, Tree: tree})
	}
	for len(remaining) > 0 {
		current := remaining[0]
		remaining = remaining[1:]
		n := nodes[current.idx]
		kids := children[current.idx]
		if len(kids) == 0 && len(n.Objects) == 0 {
			current.Tree.AddNode(nodeLabel(n))
			continue
		}
		b := current.Tree.AddBranch(nodeLabel(n))
		for _, o := range n.Objects {
			b.AddNode(fmt.Sprintf("[%s] %s x%d", o.Name, humanize.IBytes(o.Size), o.Count))
		}
		for _, k := range kids {
			remaining = append(remaining, branch{idx: k, Tree: b})
		}
	}
	_, err := io.WriteString(f.writer, tree.String())
	return err
}

// renderAI outputs a markdown hotspot summary.
func (f *Formatter) renderAI(rep *report.Report) error {
	var totalTime float64
	for _, n := range rep.Nodes() {
		if n.Parent == -1 {
			totalTime += n.TotalTime.Seconds()
		}
	}
	var totalBytes uint64
	for _, m := range rep.Memory.Methods {
		totalBytes += m.TotalSize
	}

	fmt.Fprintln(f.writer, "# Profile Summary")
	fmt.Fprintf(f.writer, "\n**Methods:** %d, **top-level time:** %s, **allocated:** %s\n\n",
		len(rep.Time.Methods), seconds(totalTime), humanize.IBytes(totalBytes))

	fmt.Fprintln(f.writer, "## Slowest Methods")
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "| Method | Total | Average | Calls | Share |")
	fmt.Fprintln(f.writer, "|--------|-------|---------|-------|-------|")
	for _, m := range rep.Time.Methods[:f.rows(len(rep.Time.Methods))] {
		fmt.Fprintf(f.writer, "| %s | %s | %s | %d | %s |\n",
			m.Name, seconds(m.TotalTime), seconds(m.Time), m.Calls, share(m.TotalTime, totalTime))
	}
	fmt.Fprintln(f.writer)

	fmt.Fprintln(f.writer, "## Largest Allocators")
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "| Method | Allocated | Share | Top class |")
	fmt.Fprintln(f.writer, "|--------|-----------|-------|-----------|")
	for _, m := range rep.Memory.Methods[:f.rows(len(rep.Memory.Methods))] {
		if m.TotalSize == 0 {
			break
		}
		top := "-"
		if len(m.Objects) > 0 {
			top = fmt.Sprintf("%s (%s)", m.Objects[0].Name, humanize.IBytes(m.Objects[0].Size))
		}
		fmt.Fprintf(f.writer, "| %s | %s | %s | %s |\n",
			m.Name, humanize.IBytes(m.TotalSize), share(float64(m.TotalSize), float64(totalBytes)), top)
	}
	fmt.Fprintln(f.writer)

	types, typeBytes := byType(rep)
	if len(types) > 0 {
		fmt.Fprintln(f.writer, "## Allocations by Type")
		fmt.Fprintln(f.writer)
		fmt.Fprintln(f.writer, "| Type | Allocated | Share |")
		fmt.Fprintln(f.writer, "|------|-----------|-------|")
		for _, t := range types[:f.rows(len(types))] {
			fmt.Fprintf(f.writer, "| %s | %s | %s |\n",
				t, humanize.IBytes(typeBytes[t]), share(float64(typeBytes[t]), float64(totalBytes)))
		}
		fmt.Fprintln(f.writer)
	}

	fmt.Fprintln(f.writer, "## Interpretation Guide")
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, "- **Total**: inclusive wall time of all completed calls on this call path")
	fmt.Fprintln(f.writer, "- **Average**: total divided by calls")
	fmt.Fprintln(f.writer, "- **Allocated**: bytes allocated while this method was innermost")
	fmt.Fprintln(f.writer, "- Methods reached through different callers appear once per call path.")
	return nil
}

// byType sums allocated bytes per declaring type, largest first.
func byType(rep *report.Report) ([]string, map[string]uint64) {
	sums := make(map[string]uint64)
	var types []string
	for _, m := range rep.Memory.Methods {
		if m.TotalSize == 0 {
			continue
		}
		parts := ident.Split(m.Name)
		t := m.Name
		if len(parts) > 1 {
			t = strings.Join(parts[:len(parts)-1], ident.Separator)
		}
		if _, ok := sums[t]; !ok {
			types = append(types, t)
		}
		sums[t] += m.TotalSize
	}
	sort.SliceStable(types, func(i, j int) bool { return sums[types[i]] > sums[types[j]] })
	return types, sums
}

func share(v, total float64) string {
	if total <= 0 {
		return "-"
	}
	s := fmt.Sprintf("%.1f%%", v/total*100)
	if v/total >= 0.5 {
		return "**" + s + "**"
	}
	return s
}

// Hotspot renders a one-line highlight of the slowest and the most
// allocating method.
func Hotspot(rep *report.Report) string {
	var parts []string
	if len(rep.Time.Methods) > 0 {
		m := rep.Time.Methods[0]
		parts = append(parts, "slowest "+hotStyle.Render(m.Name)+" "+seconds(m.TotalTime))
	}
	if len(rep.Memory.Methods) > 0 && rep.Memory.Methods[0].TotalSize > 0 {
		m := rep.Memory.Methods[0]
		parts = append(parts, "largest "+hotStyle.Render(m.Name)+" "+humanize.IBytes(m.TotalSize))
	}
	if len(parts) == 0 {
		return dimStyle.Render("no samples")
	}
	return strings.Join(parts, ", ")
}

package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/navlens/navlens-cli/internal/findings"
)

// MarkdownReporter renders a human-readable audit report: a summary
// table, findings grouped per page, and a link outline of each
// classified region when its markup was captured.
type MarkdownReporter struct {
	writer   io.WriteCloser
	outlines RegionOutlines
}

// NewMarkdownReporter takes ownership of the writer. outlines may be nil.
func NewMarkdownReporter(w io.WriteCloser, outlines RegionOutlines) *MarkdownReporter {
	return &MarkdownReporter{writer: w, outlines: outlines}
}

func (r *MarkdownReporter) Write(run *findings.Run) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Navigation audit %s\n\n", run.ID)
	fmt.Fprintf(&b, "Started %s, finished %s.\n\n",
		run.StartedAt.Format("2006-01-02 15:04:05 MST"),
		run.FinishedAt.Format("2006-01-02 15:04:05 MST"))

	counts := run.CountBySeverity()
	b.WriteString("| Severity | Count |\n|---|---|\n")
	for _, sev := range []findings.Severity{
		findings.SeverityCritical, findings.SeverityMajor,
		findings.SeverityMinor, findings.SeverityInfo,
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, counts[sev])
	}
	b.WriteString("\n")

	if len(run.Findings) == 0 {
		b.WriteString("No defects found.\n")
	}

	for _, pageURL := range pageOrder(run) {
		fmt.Fprintf(&b, "## %s\n\n", pageURL)
		var pageFindings []findings.Finding
		for _, f := range run.Findings {
			if f.Page == pageURL {
				pageFindings = append(pageFindings, f)
			}
		}
		// Worst first; observation order breaks ties.
		sort.SliceStable(pageFindings, func(i, j int) bool {
			return pageFindings[i].Severity.MoreSevere(pageFindings[j].Severity)
		})
		for _, f := range pageFindings {
			fmt.Fprintf(&b, "- **%s** [%s/%s] %s", f.Severity, f.Check, f.Region, f.Message)
			if f.Selector != "" {
				fmt.Fprintf(&b, " (`%s`)", f.Selector)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		r.writeOutlines(&b, pageURL)
	}

	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// pageOrder lists audited pages: targets first in their given order, then
// any finding-only pages sorted for determinism.
func pageOrder(run *findings.Run) []string {
	seen := make(map[string]bool)
	var pages []string
	for _, t := range run.Targets {
		if !seen[t] {
			seen[t] = true
			pages = append(pages, t)
		}
	}
	var extra []string
	for _, f := range run.Findings {
		if !seen[f.Page] {
			seen[f.Page] = true
			extra = append(extra, f.Page)
		}
	}
	sort.Strings(extra)
	return append(pages, extra...)
}

func (r *MarkdownReporter) writeOutlines(b *strings.Builder, pageURL string) {
	regions := r.outlines[pageURL]
	if len(regions) == 0 {
		return
	}
	kinds := make([]string, 0, len(regions))
	for kind := range regions {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		links, err := ParseOutline(regions[kind])
		if err != nil || len(links) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s outline\n\n", kind)
		for _, l := range links {
			fmt.Fprintf(b, "- [%s](%s)\n", l.Text, l.Href)
		}
		b.WriteString("\n")
	}
}

func (r *MarkdownReporter) Close() error { return r.writer.Close() }

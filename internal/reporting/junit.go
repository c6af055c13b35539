package reporting

import (
	"fmt"
	"io"

	"github.com/beevik/etree"

	"github.com/navlens/navlens-cli/internal/findings"
)

// JUnitReporter renders the run as a JUnit-style XML document so CI
// systems can surface navigation defects as test failures. Each audited
// page becomes a testsuite; each check on that page becomes a testcase,
// failed when it produced findings. Info-level findings do not fail a
// case.
type JUnitReporter struct {
	writer io.WriteCloser
}

// NewJUnitReporter takes ownership of the writer.
func NewJUnitReporter(w io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

func (r *JUnitReporter) Write(run *findings.Run) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "navlens")
	suites.CreateAttr("id", run.ID)

	byPage := make(map[string][]findings.Finding)
	for _, f := range run.Findings {
		byPage[f.Page] = append(byPage[f.Page], f)
	}

	totalFailures := 0
	for _, pageURL := range pageOrder(run) {
		pageFindings := byPage[pageURL]
		suite := suites.CreateElement("testsuite")
		suite.CreateAttr("name", pageURL)

		byCheck := make(map[string][]findings.Finding)
		for _, f := range pageFindings {
			byCheck[f.Check] = append(byCheck[f.Check], f)
		}

		failures := 0
		for _, check := range checkOrder(pageFindings) {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("name", check)
			tc.CreateAttr("classname", pageURL)

			for _, f := range byCheck[check] {
				if f.Severity == findings.SeverityInfo {
					continue
				}
				failure := tc.CreateElement("failure")
				failure.CreateAttr("type", string(f.Severity))
				failure.CreateAttr("message", f.Message)
				if f.Selector != "" {
					failure.SetText(f.Selector)
				}
				failures++
			}
		}
		suite.CreateAttr("tests", fmt.Sprintf("%d", len(byCheck)))
		suite.CreateAttr("failures", fmt.Sprintf("%d", failures))
		totalFailures += failures
	}
	suites.CreateAttr("failures", fmt.Sprintf("%d", totalFailures))

	doc.Indent(2)
	if _, err := doc.WriteTo(r.writer); err != nil {
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return nil
}

func (r *JUnitReporter) Close() error { return r.writer.Close() }

// checkOrder returns the distinct check names in first-seen order.
func checkOrder(items []findings.Finding) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range items {
		if !seen[f.Check] {
			seen[f.Check] = true
			out = append(out, f.Check)
		}
	}
	return out
}

// Package reporting renders an audit run into the supported output
// formats: human-readable markdown, machine-readable JSON, and
// JUnit-style XML for CI ingestion.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/navlens/navlens-cli/internal/findings"
)

// Reporter renders one complete audit run.
type Reporter interface {
	// Write renders the run to the reporter's output.
	Write(run *findings.Run) error
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// RegionOutlines maps region kind to the captured outer HTML of the
// classified region, keyed by page URL. The markdown reporter embeds a
// link outline derived from it; the other formats ignore it.
type RegionOutlines map[string]map[string]string

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format, writing to outputPath or
// stdout when the path is empty or "stdout".
func New(format, outputPath string, outlines RegionOutlines) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	cleanup := func() {
		if !isStdOut {
			writer.Close()
		}
	}

	switch format {
	case "markdown", "md":
		return NewMarkdownReporter(writer, outlines), nil
	case "json":
		return NewJSONReporter(writer), nil
	case "junit":
		return NewJUnitReporter(writer), nil
	default:
		cleanup()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// handleReport renders a human-readable HTML report for a run from a
// markdown summary of its status and, once available, its chain.
func handleReport(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		tracker := reg.Get(chi.URLParam(req, "id"))
		if tracker == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		md := buildReport(tracker)
		p := parser.NewWithExtensions(parser.CommonExtensions)
		renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
		out := markdown.ToHTML([]byte(md), p, renderer)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(out)
	}
}

// buildReport produces the markdown source of the report.
func buildReport(tracker *RunTracker) string {
	status := tracker.Snapshot()
	var b strings.Builder

	title := status.Label
	if title == "" {
		title = status.ID
	}
	fmt.Fprintf(&b, "# Sampling run %s\n\n", title)

	fmt.Fprintf(&b, "- **Phase**: %s\n", orDash(status.Phase))
	fmt.Fprintf(&b, "- **Progress**: %d / %d iterations\n", status.Current, status.Total)
	fmt.Fprintf(&b, "- **Started**: %s\n", status.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if status.Done {
		b.WriteString("- **State**: finished\n")
	} else {
		b.WriteString("- **State**: running\n")
	}
	for k, v := range status.Annotations {
		fmt.Fprintf(&b, "- **%s**: %.4g\n", k, v)
	}

	if run := tracker.Result(); run != nil {
		b.WriteString("\n## Chain\n\n")
		fmt.Fprintf(&b, "| metric | value |\n|---|---|\n")
		fmt.Fprintf(&b, "| dimensions | %d |\n", run.Ndim)
		fmt.Fprintf(&b, "| walkers | %d |\n", run.Nwalkers)
		fmt.Fprintf(&b, "| temperatures | %d |\n", run.Ntemps)
		fmt.Fprintf(&b, "| iterations | %d |\n", run.Iterations)
		fmt.Fprintf(&b, "| autocorrelation length | %d |\n", run.ACL)
		fmt.Fprintf(&b, "| acceptance fraction | %.3f |\n", run.AcceptMean)
		fmt.Fprintf(&b, "| posterior samples | %d |\n", run.Rows())
	}

	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

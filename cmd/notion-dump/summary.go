package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/toothbrush/notion-dump/localdump"
	"golang.org/x/exp/maps"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

type summaryOptions struct {
	Verbose     bool
	DryRun      bool
	CachedPages int
	Elapsed     time.Duration
}

func printSummary(w io.Writer, o *localdump.Outcome, opts summaryOptions) {
	title := "Sync finished"
	if opts.DryRun {
		title += " (dry run, nothing written)"
	}
	fmt.Fprintf(w, "%s in %s\n", headingStyle.Render(title), opts.Elapsed.Round(time.Millisecond))

	fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		okStyle.Render(fmt.Sprintf("created: %d", len(o.Created))),
		okStyle.Render(fmt.Sprintf("updated: %d", len(o.Updated))),
		skipStyle.Render(fmt.Sprintf("unchanged: %d", len(o.Skipped))),
		failStyle.Render(fmt.Sprintf("failed: %d", len(o.Failures))))
	fmt.Fprintf(w, "  pages in cache: %d\n", opts.CachedPages)

	if opts.Verbose {
		printList(w, "Created", okStyle, o.Created)
		printList(w, "Updated", okStyle, o.Updated)
		printList(w, "Unchanged", skipStyle, o.Skipped)
	}

	// failures are always listed
	printErrors(w, "Failed pages", failStyle, o.Failures)
	printErrors(w, "Failed image callbacks", warnStyle, o.CallbackFailures)
}

func printList(w io.Writer, heading string, style lipgloss.Style, items []string) {
	if len(items) == 0 {
		return
	}
	sorted := slices.Sorted(slices.Values(items))

	fmt.Fprintf(w, "\n%s\n", headingStyle.Render(heading+":"))
	for _, item := range sorted {
		fmt.Fprintf(w, "  %s\n", style.Render(item))
	}
}

func printErrors(w io.Writer, heading string, style lipgloss.Style, errs map[string]error) {
	if len(errs) == 0 {
		return
	}
	keys := maps.Keys(errs)
	slices.Sort(keys)

	fmt.Fprintf(w, "\n%s\n", style.Render(heading+":"))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\n", errs[k])
	}
}

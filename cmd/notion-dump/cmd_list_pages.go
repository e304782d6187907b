/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toothbrush/notion-dump/localdump"
)

var listPagesUsage = strings.TrimSpace(`
Show where each page of the database would be written, without downloading anything.  Pages that
won't be written (unpublished, and with no published sub-pages) are marked with a dash.
`)

var listPagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Print the page tree",
	Long:  listPagesUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		api, stop, err := newAPI(ctx, false)
		defer stop()
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		records, err := listRecords(ctx, api)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		entries, err := localdump.ResolvePaths(records, localdump.PathOptions{IndexFile: IndexFilename})
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		printPageTree(os.Stdout, entries)
		return nil
	},
}

func printPageTree(w io.Writer, entries []localdump.PathEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		// included pages first, by path; the rest by name
		if entries[i].Included() != entries[j].Included() {
			return entries[i].Included()
		}
		if entries[i].Included() {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Record.Name < entries[j].Record.Name
	})

	fmt.Fprintf(w, "pages:\n")
	for _, e := range entries {
		mark := "+"
		where := e.Path
		if !e.Included() {
			mark = "-"
			where = e.Record.Name
		}

		flags := []string{}
		if e.Record.Published {
			flags = append(flags, "published")
		}
		if e.IsContainer {
			flags = append(flags, "directory")
		}
		if e.Record.Filepath != "" {
			flags = append(flags, "pinned")
		}

		fmt.Fprintf(w, "  %s %s  (%s) [%s]\n", mark, where, e.ID, strings.Join(flags, ", "))
	}
}

func init() {
	listCmd.AddCommand(listPagesCmd)
}

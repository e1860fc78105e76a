package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codewiki/internal/status"
)

func recordCmd() *cobra.Command {
	var repo string

	cmd := &cobra.Command{
		Use:   "record [wiki-dir]",
		Short: "Record the current wiki pages as freshly generated",
		Long: `Fingerprint the source files behind every page below wiki-dir and store
them in the status file, so that later runs of 'status' can tell which pages
need regeneration. Pages that no longer exist are dropped from the record.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, pc, err := analyzeRepo(cmd.Context(), repo, nil, nil)
			if err != nil {
				return err
			}
			dir := wikiDir(args, repo, pc.OutputDir)
			pages, err := status.ScanPages(dir)
			if err != nil {
				return err
			}
			tracker, err := status.LoadTracker(statusPath(repo, pc), os.DirFS(repo))
			if err != nil {
				return err
			}

			present := make(map[string]bool, len(pages))
			recorded := 0
			for _, p := range pages {
				present[p] = true
				files, ok := a.Pages[p]
				if !ok {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(p)))
				if err != nil {
					return fmt.Errorf("read page: %w", err)
				}
				if err := tracker.Record(p, files, string(data)); err != nil {
					return fmt.Errorf("record %s: %w", p, err)
				}
				recorded++
			}
			for _, p := range tracker.Pages() {
				if !present[p] {
					tracker.Forget(p)
				}
			}
			if err := tracker.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d of %d pages\n", recorded, len(pages))
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", ".", "repository the wiki documents")
	return cmd
}

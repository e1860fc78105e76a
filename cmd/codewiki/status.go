package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codewiki/internal/config"
	"github.com/dusk-indust/codewiki/internal/status"
)

func statusCmd() *cobra.Command {
	var (
		repo    string
		banners bool
	)

	cmd := &cobra.Command{
		Use:   "status [wiki-dir]",
		Short: "Report which wiki pages are stale",
		Long: `Analyze the repository, compare the generation record of every page with
the commit history and current set of its source files, and print a
freshness report. With --banners, stale pages
get a warning banner and fresh pages lose theirs.`,
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

			git := status.NewGitMetadata(repo)
			git.Concurrency = pc.Concurrency
			git.Logger = slog.Default()
			stale, err := status.Checker{Threshold: pc.Threshold()}.CheckTracked(cmd.Context(), tracker, git)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprint(w, status.RenderReport(status.BuildReport(stale, len(pages))))
			printRegeneration(w, tracker, pages, a.Pages)

			if !banners {
				return nil
			}
			return applyBanners(dir, pages, stale)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", ".", "repository the wiki documents")
	cmd.Flags().BoolVar(&banners, "banners", false, "add or remove staleness banners in the pages")
	return cmd
}

func statusPath(repo string, pc *config.ProjectConfig) string {
	if filepath.IsAbs(pc.StatusFile) {
		return pc.StatusFile
	}
	return filepath.Join(repo, pc.StatusFile)
}

// printRegeneration lists pages whose current sources differ from the
// recorded ones in content or membership, and pages that were never recorded.
func printRegeneration(w io.Writer, tracker *status.Tracker, pages []string, sources map[string][]string) {
	var changed, untracked []string
	for _, p := range pages {
		if _, err := tracker.Get(p); err != nil {
			untracked = append(untracked, p)
			continue
		}
		if tracker.NeedsRegeneration(p, sources[p]) {
			changed = append(changed, p)
		}
	}
	if len(changed) > 0 {
		fmt.Fprintf(w, "\n## Sources changed since generation\n\n")
		for _, p := range changed {
			fmt.Fprintf(w, "- %s\n", p)
		}
	}
	if len(untracked) > 0 {
		fmt.Fprintf(w, "\n## Untracked pages\n\n")
		for _, p := range untracked {
			fmt.Fprintf(w, "- %s\n", p)
		}
	}
}

func applyBanners(dir string, pages []string, stale []status.StalePage) error {
	byPage := make(map[string]status.StalePage, len(stale))
	for _, s := range stale {
		byPage[s.PagePath] = s
	}
	for _, p := range pages {
		path := filepath.Join(dir, filepath.FromSlash(p))
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read page: %w", err)
		}
		content := string(data)
		updated := content
		if s, ok := byPage[p]; ok {
			updated = status.InjectBanner(content, status.FormatBanner(s))
		} else if status.HasBanner(content) {
			updated = status.RemoveBanner(content)
		}
		if updated == content {
			continue
		}
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return fmt.Errorf("write page: %w", err)
		}
	}
	return nil
}

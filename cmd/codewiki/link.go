package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codewiki/internal/status"
	"github.com/dusk-indust/codewiki/internal/wiki"
)

func linkCmd() *cobra.Command {
	var (
		repo   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "link [wiki-dir]",
		Short: "Cross-link every wiki page to the entities it mentions",
		Long: `Analyze the repository, then rewrite each markdown page below wiki-dir so
that mentions of known classes, functions and methods link to the pages
documenting them. Code blocks are left untouched. wiki-dir defaults to the
configured output directory.`,
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

			linker := a.CrossLinker()
			changed := 0
			for _, p := range pages {
				ok, err := linkPage(linker, dir, p, dryRun)
				if err != nil {
					return err
				}
				if ok {
					changed++
					fmt.Fprintf(cmd.OutOrStdout(), "  linked %s\n", p)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d pages changed\n", changed, len(pages))
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", ".", "repository the wiki documents")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing")
	return cmd
}

func linkPage(linker *wiki.CrossLinker, dir, page string, dryRun bool) (bool, error) {
	path := filepath.Join(dir, filepath.FromSlash(page))
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read page: %w", err)
	}
	out := linker.Rewrite(wiki.Page{Path: page, Content: string(data)})
	if out.Content == string(data) {
		return false, nil
	}
	if dryRun {
		return true, nil
	}
	if err := os.WriteFile(path, []byte(out.Content), 0o644); err != nil {
		return false, fmt.Errorf("write page: %w", err)
	}
	return true, nil
}

// wikiDir resolves the wiki directory: the argument if given, otherwise the
// configured output directory inside repo.
func wikiDir(args []string, repo, outputDir string) string {
	if len(args) > 0 {
		return args[0]
	}
	if filepath.IsAbs(outputDir) {
		return outputDir
	}
	return filepath.Join(repo, outputDir)
}

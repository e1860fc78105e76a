package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/codewiki/internal/config"
	"github.com/dusk-indust/codewiki/internal/graph"
	"github.com/dusk-indust/codewiki/internal/orchestrator"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "codewiki",
		Short: "Build documentation graphs for a codebase",
		Long: `Analyze a repository with tree-sitter, build its call, dependency and
inheritance graphs, cross-link wiki pages to the entities they mention, and
track which pages have gone stale.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			slog.SetDefault(newLogger(stderr, verbose))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		analyzeCmd(),
		diagramCmd(),
		linkCmd(),
		recordCmd(),
		statusCmd(),
		serveMCPCmd(),
	)
	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// analyzeRepo runs the full analysis of repo using its codewiki.yml.
// store and progress may be nil.
func analyzeRepo(ctx context.Context, repo string, store graph.Store, progress io.Writer) (*orchestrator.Analysis, *config.ProjectConfig, error) {
	pc, err := config.Load(repo)
	if err != nil {
		return nil, nil, err
	}
	cfg := orchestrator.FromProject(repo, pc)
	cfg.Logger = slog.Default()

	parser := graph.NewTreeSitterParser()
	defer parser.Close()
	p := orchestrator.NewPipeline(cfg, parser, store)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range p.Progress() {
			if progress != nil {
				fmt.Fprintln(progress, orchestrator.FormatProgress(ev))
			}
		}
	}()

	a, err := p.Analyze(ctx)
	p.Close()
	<-done
	if err != nil {
		return nil, nil, err
	}
	return a, pc, nil
}

func repoArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

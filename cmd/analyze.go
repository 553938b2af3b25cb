package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidates"
	"github.com/spigell/cv-screener/internal/export"
	"github.com/spigell/cv-screener/internal/screening"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Evaluate every candidate against the saved job spec and store the ranking",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before calling the model")
	analyzeCmd.Flags().StringP("export", "x", "", "also write the ranking to this xlsx file")
}

func analyze(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, config := setup()
	defer lg.Sync()

	lg.Info("starting the cv-screener analysis", zap.String("version", version))

	st := openStore(ctx, config, lg)
	defer st.Close()

	job, err := st.LoadJobSpec(ctx)
	if err != nil {
		lg.Fatal("loading job spec", zap.Error(err))
	}
	if err := job.Validate(); err != nil {
		lg.Fatal("job spec is not usable", zap.Error(err), zap.String("hint", "save one with 'cv-screener job set --file vaga.yaml'"))
	}

	src := candidateSource(config, lg)
	set, err := src.Load()
	if err != nil {
		hint := "check the candidate file header and separator"
		if errors.Is(err, candidates.ErrNotFound) {
			hint = "set candidates.file or pass --candidates"
		}
		lg.Fatal("loading candidates", zap.Error(err), zap.String("hint", hint))
	}

	lg.Info("candidates loaded", zap.Int("count", set.Len()), zap.String("job", job.Title))
	lg.Debug("candidates to evaluate", zap.Strings("names", set.Names()))

	if set.Len() > 0 && cmd.Flag("yes").Value.String() == "false" {
		_, action, err := prompt.Run()
		if err != nil {
			lg.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			lg.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	runner, err := newRunner(ctx, config, st, lg)
	if err != nil {
		lg.Fatal("configuring the model client", zap.Error(err))
	}

	ranked, err := runner.Run(ctx, job, set)
	if ranked == nil {
		lg.Fatal("analysis failed", zap.Error(err))
	}
	if err != nil {
		// The ranking is still printed and exported below.
		lg.Error("analysis finished with an error", zap.Error(err))
	}

	printRanking(ranked)

	if path := cmd.Flag("export").Value.String(); path != "" {
		if err := writeXLSXFile(path, ranked, job); err != nil {
			lg.Fatal("exporting results", zap.Error(err))
		}
		lg.Info("ranking exported", zap.String("filename", path))
	}
}

func printRanking(ranked screening.ResultSet) {
	for i, rec := range ranked {
		marker := ""
		if rec.Degraded {
			marker = " (!)"
		}
		fmt.Printf("%3d. %-30s %3d%s  %s\n", i+1, rec.Name, rec.Score, marker, rec.URL)
	}
}

func writeXLSXFile(path string, results screening.ResultSet, job screening.JobSpec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteXLSX(f, results, job); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

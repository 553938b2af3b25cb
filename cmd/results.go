package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print the ranking of the last analysis",
	Run: func(cmd *cobra.Command, _ []string) {
		results(cmd)
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().StringP("export", "x", "", "write the ranking to this xlsx file instead of printing it")
	resultsCmd.Flags().Bool("table", false, "print a compact table instead of JSON")
}

func results(cmd *cobra.Command) {
	ctx := context.Background()

	lg, config := setup()
	defer lg.Sync()

	st := openStore(ctx, config, lg)
	defer st.Close()

	ranked, err := st.LoadResults(ctx)
	if err != nil {
		lg.Fatal("loading results", zap.Error(err))
	}

	if path := cmd.Flag("export").Value.String(); path != "" {
		job, err := st.LoadJobSpec(ctx)
		if err != nil {
			lg.Warn("loading job spec for export", zap.Error(err))
		}
		if err := writeXLSXFile(path, ranked, job); err != nil {
			lg.Fatal("exporting results", zap.Error(err))
		}
		lg.Info("ranking exported", zap.String("filename", path), zap.Int("count", ranked.Len()))
		return
	}

	if cmd.Flag("table").Value.String() == "true" {
		printRanking(ranked)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(ranked); err != nil {
		lg.Fatal("printing results", zap.Error(err))
	}
}

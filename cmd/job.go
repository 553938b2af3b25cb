package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/cv-screener/internal/screening"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Show or replace the saved job spec",
}

var jobShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved job spec",
	Run: func(_ *cobra.Command, _ []string) {
		showJob()
	},
}

var jobSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the saved job spec with the contents of a YAML or JSON file",
	Run: func(cmd *cobra.Command, _ []string) {
		setJob(cmd)
	},
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobShowCmd, jobSetCmd)

	jobSetCmd.Flags().StringP("file", "f", "", "job spec file (yaml or json)")
	_ = jobSetCmd.MarkFlagRequired("file")
}

func showJob() {
	ctx := context.Background()

	lg, config := setup()
	defer lg.Sync()

	st := openStore(ctx, config, lg)
	defer st.Close()

	job, err := st.LoadJobSpec(ctx)
	if err != nil {
		lg.Fatal("loading job spec", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(job, "", "    ")
	fmt.Println(string(pretty))
}

func setJob(cmd *cobra.Command) {
	ctx := context.Background()

	lg, config := setup()
	defer lg.Sync()

	path := cmd.Flag("file").Value.String()
	job, err := readJobFile(path)
	if err != nil {
		lg.Fatal("reading job spec file", zap.Error(err), zap.String("filename", path))
	}
	if err := job.Validate(); err != nil {
		lg.Fatal("job spec is not usable", zap.Error(err))
	}

	st := openStore(ctx, config, lg)
	defer st.Close()

	if err := st.SaveJobSpec(ctx, job); err != nil {
		lg.Fatal("saving job spec", zap.Error(err))
	}

	lg.Info("job spec saved", zap.String("job", job.Title))
}

// readJobFile decodes YAML, which also covers JSON documents.
func readJobFile(path string) (screening.JobSpec, error) {
	var job screening.JobSpec

	data, err := os.ReadFile(path)
	if err != nil {
		return job, err
	}
	if err := yaml.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("decode %s: %w", path, err)
	}
	return job, nil
}

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sofmeright/steiger/src/handoff"
	"github.com/sofmeright/steiger/src/output"
	"github.com/sofmeright/steiger/src/progress"
)

var dInput string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the configured releases with images from a build",
	Long: `Deploy every configured release, passing the images recorded by
"steiger build --output-file" to the deployer.`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&dInput, "input", "", "build output file written by steiger build")
	_ = deployCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sink := progress.NewLog(*zerolog.Ctx(ctx))
	color := output.UseColor()
	w := cmd.OutOrStdout()
	start := time.Now()

	if len(cfg.Deploy) == 0 {
		return errors.New("no releases configured under deploy")
	}

	doc, err := handoff.Read(dInput)
	if err != nil {
		return err
	}

	output.SectionStart(w, "steiger_deploy", "Deploy")
	err = handoff.NewManager(handoff.NewHelm).Run(ctx, sink.Child("deploy"), cfg.Deploy, doc)
	output.SectionEnd(w, "steiger_deploy")

	failed := map[string]error{}
	var de *handoff.DeployError
	if errors.As(err, &de) {
		for _, f := range de.Failures {
			failed[f.Release] = f.Err
		}
	} else if err != nil {
		return err
	}

	sec := output.NewSection(w, "Deploy", time.Since(start), color)
	for _, rel := range cfg.Deploy {
		if ferr, ok := failed[rel.Name]; ok {
			sec.StatusRow(rel.Name, ferr.Error(), output.StatusFailed)
			continue
		}
		if de != nil && de.Validation {
			sec.StatusRow(rel.Name, "not deployed", output.StatusSkipped)
			continue
		}
		sec.StatusRow(rel.Name, fmt.Sprintf("helm %s", rel.Helm.Path), output.StatusSuccess)
	}
	sec.Close()
	return err
}

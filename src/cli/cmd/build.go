package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/build/engines"
	"github.com/sofmeright/steiger/src/gitver"
	"github.com/sofmeright/steiger/src/handoff"
	"github.com/sofmeright/steiger/src/image"
	"github.com/sofmeright/steiger/src/output"
	"github.com/sofmeright/steiger/src/progress"
	"github.com/sofmeright/steiger/src/registry"
)

var (
	bPlatform   string
	bRepo       string
	bTag        string
	bOutputFile string
	bInsecure   []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build all services and publish them",
	Long: `Build every configured service with its backend.

When a repository is given, each artifact is pushed to <repo>/<artifact>:<tag>
and the digest-pinned references are written to --output-file for deploy.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&bPlatform, "platform", "linux/"+runtime.GOARCH, "target platform (os/arch[/variant])")
	buildCmd.Flags().StringVar(&bRepo, "repo", "", "registry repository prefix, e.g. registry.example.com/org")
	buildCmd.Flags().StringVar(&bTag, "tag", "", "tag to push (default: from config, expanded from git)")
	buildCmd.Flags().StringVar(&bOutputFile, "output-file", "", "write the build output document here")
	buildCmd.Flags().StringSliceVar(&bInsecure, "insecure-registry", nil, "registry hosts reached over plain HTTP")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)
	sink := progress.NewLog(*logger)
	color := output.UseColor()
	w := cmd.OutOrStdout()
	pipelineStart := time.Now()

	platform, err := image.ParsePlatform(bPlatform)
	if err != nil {
		return err
	}

	repo := bRepo
	if repo == "" {
		repo = cfg.Registry.Repo
	}

	output.ContextBlock(w, append(output.CIContext(),
		output.KV{Key: "Platform", Value: image.FormatPlatform(&platform)},
		output.KV{Key: "Services", Value: fmt.Sprint(len(cfg.Services))},
	))

	// --- Build ---
	workRoot, err := build.NewWorkRoot()
	if err != nil {
		return err
	}
	defer os.RemoveAll(workRoot)

	output.SectionStart(w, "steiger_build", "Build")
	dispatcher := build.NewDispatcher(cfg.Services, engines.Registry(), workRoot)
	res, buildErr := dispatcher.Run(ctx, bPlatform, sink)

	var failures []*build.TargetError
	var be *build.BuildError
	if errors.As(buildErr, &be) {
		failures = be.Failures
	} else if buildErr != nil {
		output.SectionEnd(w, "steiger_build")
		return buildErr
	}

	buildSec := output.NewSection(w, "Build", res.Elapsed, color)
	output.BuildRows(buildSec, res.Output, failures)
	buildSec.Close()
	output.SectionEnd(w, "steiger_build")

	if buildErr != nil {
		writeSummary(w, pipelineStart, color, buildErr,
			output.KV{Key: "build", Value: fmt.Sprintf("%d of %d failed", len(failures), be.Total)})
		return buildErr
	}
	if repo == "" {
		writeSummary(w, pipelineStart, color, nil,
			output.KV{Key: "build", Value: fmt.Sprintf("%d artifact(s)", res.Output.Len())},
			output.KV{Key: "push", Value: "skipped, no repository"})
		return nil
	}

	// --- Push ---
	if err := registry.ValidateCredentials(cfg.Registry.Credentials); err != nil {
		return err
	}
	tag, err := resolveTag()
	if err != nil {
		return err
	}

	output.SectionStart(w, "steiger_push", "Push")
	pushStart := time.Now()
	client := registry.NewClient(append(cfg.Registry.Insecure, bInsecure...))
	publisher := registry.NewPublisher(client, registry.Credentials(cfg.Registry.Credentials))
	results, pushErr := publisher.PublishAll(ctx, sink.Child("push"), repo, tag, platform, res.Output.Artifacts)

	var pe *registry.PublishError
	var pushFailures []*registry.PushError
	if errors.As(pushErr, &pe) {
		pushFailures = pe.Failures
	} else if pushErr != nil {
		output.SectionEnd(w, "steiger_push")
		return pushErr
	}

	pushSec := output.NewSection(w, "Push", time.Since(pushStart), color)
	output.PushRows(pushSec, results, pushFailures)
	pushSec.Close()
	output.SectionEnd(w, "steiger_push")

	if bOutputFile != "" && len(results) > 0 {
		if err := handoff.Write(bOutputFile, handoff.FromResults(results)); err != nil {
			return fmt.Errorf("writing build output: %w", err)
		}
		logger.Info().Str("path", bOutputFile).Msg("wrote build output")
	}

	writeSummary(w, pipelineStart, color, pushErr,
		output.KV{Key: "build", Value: fmt.Sprintf("%d artifact(s)", res.Output.Len())},
		output.KV{Key: "push", Value: fmt.Sprintf("%d pushed, %d failed", len(results), len(pushFailures))})
	return pushErr
}

// resolveTag returns --tag verbatim, or expands the configured template
// against the repository state.
func resolveTag() (string, error) {
	if bTag != "" {
		return bTag, nil
	}
	state, err := gitver.Detect(".")
	if err != nil {
		return "", fmt.Errorf("detecting version: %w", err)
	}
	tag := gitver.ExpandTag(cfg.Registry.Tag, state)
	if err := registry.ValidateTag(tag); err != nil {
		return "", fmt.Errorf("tag template %q: %w", cfg.Registry.Tag, err)
	}
	return tag, nil
}

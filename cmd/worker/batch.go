package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/app"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/queue"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/service"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate one topic end to end and export the scripts",
	Long: `Expand one topic into its variant projects, generate the shared structures
and every script, then write one text file per project and language.

Examples:
  # Two structures with two scripts each, nine minutes long
  worker batch --title "Court Day" --niche caprio --duration 9 --structures 2 --scripts 2

  # Request read from a JSON file, structures only
  worker batch --request topic.json --skip-scripts`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	registerBatchFlags(batchCmd)
}

func registerBatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("request", "", "JSON file with the topic request; flags below override its fields")
	cmd.Flags().String("title", "", "Topic title")
	cmd.Flags().String("niche", "", "Niche id")
	cmd.Flags().Float64("duration", 0, "Target duration in minutes")
	cmd.Flags().Float64("structures", 0, "Structure variants")
	cmd.Flags().Float64("scripts", 0, "Script variants per structure")
	cmd.Flags().String("instructions", "", "Extra instructions for every generation step")
	cmd.Flags().String("model", "", "Model id")
	cmd.Flags().Bool("skip-scripts", false, "Stop after the structures")
	cmd.Flags().String("out", "./exports", "Directory for exported scripts")
	cmd.Flags().StringSlice("lang", []string{service.LangEnglish, service.LangUkrainian}, "Export languages (en, ua)")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	req, err := topicFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	skipScripts, _ := cmd.Flags().GetBool("skip-scripts")
	outDir, _ := cmd.Flags().GetString("out")
	langs, _ := cmd.Flags().GetStringSlice("lang")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	runCtx, cancelRun := context.WithCancel(context.Background())
	saved := a.Run(runCtx)
	defer func() {
		cancelRun()
		<-saved
	}()

	projects, err := a.ProjectService.CreateBatch(ctx, req, false)
	if err != nil {
		return err
	}
	batchID := projects[0].BatchID
	ctx = logger.SetBatchID(ctx, batchID)

	structure := queue.NewCommand(queue.KindStructure)
	structure.BatchID = batchID
	structure.Instructions = req.Instructions
	if err := a.Executor.Execute(ctx, structure); err != nil {
		return fmt.Errorf("structure: %w", err)
	}

	if !skipScripts {
		script := queue.NewCommand(queue.KindScript)
		script.Instructions = req.Instructions
		for _, p := range a.ProjectService.List(batchID) {
			if len(p.Structure) > 0 {
				script.ProjectIDs = append(script.ProjectIDs, p.ID)
			}
		}
		if len(script.ProjectIDs) > 0 {
			if err := a.Executor.Execute(ctx, script); err != nil {
				return fmt.Errorf("scripts: %w", err)
			}
		}
	}

	written, err := exportBatch(a.ProjectService.List(batchID), outDir, langs)
	if err != nil {
		return err
	}

	for _, n := range a.Notices.List(0) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", n.Level, n.Message)
	}
	cost := a.Engine.Cost.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d projects, %d files in %s, estimated cost $%.4f\n",
		batchID, len(projects), written, outDir, cost.Total)
	return nil
}

func topicFromFlags(cmd *cobra.Command) (domain.TopicRequest, error) {
	var req domain.TopicRequest
	if path, _ := cmd.Flags().GetString("request"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("read request: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parse request: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		req.Title, _ = flags.GetString("title")
	}
	if flags.Changed("niche") {
		req.NicheID, _ = flags.GetString("niche")
	}
	if flags.Changed("duration") {
		req.DurationMinutes, _ = flags.GetFloat64("duration")
	}
	if flags.Changed("structures") {
		req.StructureVariants, _ = flags.GetFloat64("structures")
	}
	if flags.Changed("scripts") {
		req.ScriptVariants, _ = flags.GetFloat64("scripts")
	}
	if flags.Changed("instructions") {
		req.Instructions, _ = flags.GetString("instructions")
	}
	if flags.Changed("model") {
		req.Model, _ = flags.GetString("model")
	}
	if req.StructureVariants == 0 {
		req.StructureVariants = 1
	}
	if req.ScriptVariants == 0 {
		req.ScriptVariants = 1
	}
	return req, nil
}

// exportBatch writes <id>-<title>.<lang>.txt for every project with script text.
func exportBatch(projects []domain.Project, dir string, langs []string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create export directory: %w", err)
	}
	written := 0
	for _, p := range projects {
		for _, lang := range langs {
			text := service.ExportText(p, lang)
			if text == "" {
				continue
			}
			name := fmt.Sprintf("%d-%s.%s.txt", p.ID, strings.TrimSuffix(service.ExportFilename(p, p.Title), ".txt"), lang)
			if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
				return written, fmt.Errorf("write %s: %w", name, err)
			}
			written++
		}
	}
	return written, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docuform/internal/config"
	"docuform/internal/gemini"
	"docuform/internal/pipeline"
	"docuform/internal/schema"
	"docuform/internal/storage"
	"docuform/internal/validate"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docuform",
		Short: "AI-powered document template generator",
	}
	configPath string
	dbPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the local run database (SQLite); empty disables persistence")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(presetsCmd)
}

func newLogger() (*zap.Logger, error) {
	if strings.EqualFold(os.Getenv("DOCUFORM_DEBUG"), "true") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a document and synthesize a positioned template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		mime, err := mimeFromExtension(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, err := gemini.New(ctx, cfg.Client, log)
		if err != nil {
			return err
		}
		p, err := pipeline.New(cfg, client, log)
		if err != nil {
			return err
		}

		sink := gemini.SinkFunc(func(e gemini.Event) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Stage, e.Message)
		})
		run, err := p.Run(ctx, gemini.AnalyzeRequest{
			Data:       data,
			MimeType:   mime,
			SourceName: filepath.Base(args[0]),
		}, sink)
		if err != nil {
			if run != nil {
				printJSON(run)
			}
			return err
		}

		if dbPath != "" {
			if err := persist(ctx, run, filepath.Base(args[0])); err != nil {
				return err
			}
		}
		return printJSON(run)
	},
}

var fixFlag bool

func init() {
	validateCmd.Flags().BoolVar(&fixFlag, "fix", false, "Apply structural auto-fixes before validating")
}

var validateCmd = &cobra.Command{
	Use:   "validate [template.json]",
	Short: "Validate a stored template file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var t schema.Template
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("parse template: %w", err)
		}
		if fixFlag {
			for _, fix := range validate.AutoFix(&t) {
				fmt.Fprintln(os.Stderr, "fixed:", fix)
			}
		}
		report := validate.Validate(&t, nil)
		return printJSON(report)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" {
			return fmt.Errorf("list requires --db")
		}
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), 20)
		if err != nil {
			return err
		}
		for _, r := range runs {
			status := "failed"
			if r.Success {
				status = "ok"
			}
			fmt.Printf("%s  %-8s score=%-3d %s  %s\n",
				r.CreatedAt.Format(time.RFC3339), status, r.Score, r.ID, r.SourceName)
		}
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List supported page presets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range config.Presets() {
			fmt.Printf("%-8s %g x %g\n", p.Name, p.Width, p.Height)
		}
	},
}

func persist(ctx context.Context, run *pipeline.RunResult, sourceName string) error {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	id := uuid.NewString()
	err = store.SaveRun(ctx, &storage.StoredRun{
		ID:         id,
		SourceName: sourceName,
		CreatedAt:  time.Now().UTC(),
		Result:     run.Result,
		Template:   run.Template,
		Bindings:   run.Bindings,
		Report:     run.Report,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "saved run", id)
	return nil
}

func mimeFromExtension(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf", nil
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".webp":
		return "image/webp", nil
	default:
		return "", fmt.Errorf("unsupported file extension %q (use pdf, png, jpg, webp)", filepath.Ext(path))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command systemcard-report renders a validated system card to HTML and
// prints the reference schema for authoring new cards.
//
// Usage:
//
//	systemcard-report <yaml> <schema> [--template T] [--output O]
//	systemcard-report schema [--output O]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ggoodman/systemcard-mcp/cardschema"
	"github.com/ggoodman/systemcard-mcp/document"
	"github.com/ggoodman/systemcard-mcp/internal/logging"
	"github.com/ggoodman/systemcard-mcp/internal/validation"
	"github.com/ggoodman/systemcard-mcp/report"
	"github.com/spf13/cobra"
)

const defaultOutput = "build/system_card.html"

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		templatePath string
		outputPath   string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:           "systemcard-report <yaml> <schema>",
		Short:         "Generate AI System Card HTML from YAML and a JSON Schema",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(stderr, logging.FormatText, logLevel)
			if err != nil {
				return err
			}

			var opts []report.Option
			if templatePath != "" {
				opts = append(opts, report.WithTemplateFile(templatePath))
			}
			if err := generate(cmd.Context(), log, args[0], args[1], outputPath, opts...); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Wrote %s\n", outputPath)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&templatePath, "template", "", "path to an html/template file (default: embedded template)")
	cmd.Flags().StringVar(&outputPath, "output", defaultOutput, "output HTML path")

	cmd.AddCommand(newSchemaCommand(stdout))
	return cmd
}

func generate(ctx context.Context, log *slog.Logger, cardPath, schemaPath, outputPath string, opts ...report.Option) error {
	doc, err := document.Load(cardPath)
	if err != nil {
		return err
	}
	schema, err := validation.LoadSchemaFile(schemaPath)
	if err != nil {
		return err
	}
	if err := validation.Check(doc.Tree(), schema); err != nil {
		return err
	}
	log.DebugContext(ctx, "report.validation.ok", slog.String("card", cardPath))

	if err := report.WriteFile(outputPath, doc, opts...); err != nil {
		return err
	}
	log.InfoContext(ctx, "report.write.ok", slog.String("path", outputPath))
	return nil
}

func newSchemaCommand(stdout io.Writer) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the reference Draft 2020-12 schema for system cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := cardschema.Generate()
			if err != nil {
				return err
			}
			if outputPath == "" {
				_, err := stdout.Write(b)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(outputPath, b, 0o644); err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			fmt.Fprintf(stdout, "Wrote %s\n", outputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "write the schema to this path instead of stdout")
	return cmd
}

package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sentiment-cli/internal/export"
	"github.com/sells-group/sentiment-cli/internal/orchestrator"
)

var (
	outputFormat string
	exportPath   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Analyze a single piece of text",
	Long:  "Analyzes the given text, or stdin when no arguments are given or the only argument is \"-\".",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := textInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		env, err := initSession()
		if err != nil {
			return err
		}

		out, err := env.Orchestrator.AnalyzeSingleText(cmd.Context(), text)
		if err != nil {
			return errors.New(describeError(err))
		}
		return emit(cmd.OutOrStdout(), out)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Analyze an uploaded file",
	Long:  "Text, CSV, TSV, and XLSX files are analyzed line by line; PDF and DOCX files are sent to the service whole.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		up, err := readUpload(args[0])
		if err != nil {
			return err
		}

		env, err := initSession()
		if err != nil {
			return err
		}

		out, err := env.Orchestrator.AnalyzeUploadedFile(cmd.Context(), up)
		if err != nil {
			return errors.New(describeError(err))
		}
		return emit(cmd.OutOrStdout(), out)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show the built-in demo data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initSession()
		if err != nil {
			return err
		}

		out, err := env.Orchestrator.LoadDemoData()
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), out)
	},
}

// textInput joins args, reading stdin for no args or "-".
func textInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}

// emit writes the outcome and, with --export, saves the snapshot.
func emit(w io.Writer, out *orchestrator.Outcome) error {
	if err := writeOutcome(w, outputFormat, out); err != nil {
		return err
	}
	if exportPath != "" {
		if err := export.ToFile(exportPath, out.Snapshot); err != nil {
			return err
		}
		_, _ = io.WriteString(os.Stderr, "Exported to "+exportPath+"\n")
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, uploadCmd, demoCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, csv, json, yaml")
		c.Flags().StringVar(&exportPath, "export", "", "also write the results to this file (.csv, .json, .yaml)")
		rootCmd.AddCommand(c)
	}
}

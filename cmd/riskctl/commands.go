package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/app"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// withApp wires the application for one command and prints its result as JSON.
func withApp(run func(ctx context.Context, a *app.App, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.LogLevel = level
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := app.New(ctx, cfg, utils.NewLogger(cfg.LogLevel))
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := run(ctx, a, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply [application.json]",
		Short: "Create a loan application from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) (any, error) {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return nil, err
			}
			var application models.Application
			if err := json.Unmarshal(raw, &application); err != nil {
				return nil, fmt.Errorf("parse %s: %w", args[0], err)
			}
			return a.Documents.CreateApplication(ctx, &application)
		}),
	}
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [application-id] [file]",
		Short: "Upload a supporting document and extract its text",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringP("type", "t", "", "Document type (e.g. bank_statement, tax_return)")

	cmd.RunE = withApp(func(ctx context.Context, a *app.App, args []string) (any, error) {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > a.Config.MaxFileSize {
			return nil, fmt.Errorf("%s exceeds the %d byte upload limit", args[1], a.Config.MaxFileSize)
		}
		docType, _ := cmd.Flags().GetString("type")
		return a.Documents.UploadDocument(ctx, &models.UploadRequest{
			ApplicationID: args[0],
			DocumentType:  docType,
			File:          data,
			Filename:      filepath.Base(args[1]),
		})
	})
	return cmd
}

func fieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields [application-id]",
		Short: "Aggregate extracted fields across an application's documents",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) (any, error) {
			return a.Pipeline.AggregateFields(ctx, args[0])
		}),
	}
}

func discrepanciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discrepancies [application-id]",
		Short: "Compare application data with document evidence",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) (any, error) {
			return a.Pipeline.CheckDiscrepancies(ctx, args[0])
		}),
	}
}

func bankingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banking [document-id...]",
		Short: "Analyze one or more bank statements",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) (any, error) {
			if len(args) == 1 {
				return a.Pipeline.AnalyzeBanking(ctx, args[0])
			}
			return a.Pipeline.AnalyzeBankingBatch(ctx, args), nil
		}),
	}
}

func nsfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nsf [document-id]",
		Short: "Derive NSF trends from a bank statement",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) (any, error) {
			return a.Pipeline.NSFTrends(ctx, args[0])
		}),
	}
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [application-id]",
		Short: "Compute the weighted risk score for an application",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) (any, error) {
			return a.Pipeline.ScoreApplication(ctx, args[0])
		}),
	}
}

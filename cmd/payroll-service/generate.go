package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nurpe/payroll-breakdowns/internal/config"
	"github.com/nurpe/payroll-breakdowns/internal/excel"
	"github.com/nurpe/payroll-breakdowns/internal/logger"
	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/pdf"
	"github.com/nurpe/payroll-breakdowns/internal/registry"
	"github.com/nurpe/payroll-breakdowns/internal/service"
	"github.com/nurpe/payroll-breakdowns/internal/summary"
)

type generateOptions struct {
	input       string
	technicians string
	outDir      string
	roles       model.ColumnRoles
	pdf         bool
}

func NewGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the breakdown archive from a weekly report file",
		Example: `  payroll-service generate --input weekly.xlsx
  payroll-service generate --input weekly.csv --technicians techs.yaml --out ./out --pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "weekly report (.xlsx, .xls or .csv)")
	cmd.Flags().StringVarP(&opts.technicians, "technicians", "t", "", "YAML file with technician profiles")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "directory for the generated files")
	cmd.Flags().StringVar(&opts.roles.Date, "date-column", "", "header of the date column (default: first column)")
	cmd.Flags().StringVar(&opts.roles.Technician, "technician-column", "", "header of the technician column")
	cmd.Flags().StringVar(&opts.roles.JobFee, "fee-column", "", "header of the job fee column (default: last column)")
	cmd.Flags().BoolVar(&opts.pdf, "pdf", false, "also write the weekly summary PDF")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewWithWriter(cfg.Environment, cmd.ErrOrStderr())

	reg := registry.New()
	if opts.technicians != "" {
		profiles, err := registry.LoadProfilesFile(opts.technicians)
		if err != nil {
			return err
		}
		reg.Apply(profiles)
	}

	table, err := readInput(opts.input)
	if err != nil {
		return err
	}

	svc := service.NewPayrollService(nil, nil, excel.NewGenerator(), pdf.NewGenerator(), cfg, log)
	batch, err := svc.GenerateBatch(cmd.Context(), table, reg, opts.roles)
	if errors.Is(err, service.ErrNoMatch) {
		return fmt.Errorf("%w; add them with --technicians or adjust --technician-column", err)
	}
	if err != nil {
		return err
	}

	bundle, err := svc.Bundle(batch)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	archivePath := filepath.Join(opts.outDir, bundle.FileName)
	if err := os.WriteFile(archivePath, bundle.Content, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	log.Info().
		Str("path", archivePath).
		Int("files", bundle.Count).
		Int("unmatched_in_file", len(batch.Match.UnmatchedInFile)).
		Int("unmatched_in_registry", len(batch.Match.UnmatchedInRegistry)).
		Str("size", humanize.Bytes(uint64(len(bundle.Content)))).
		Msg("archive written")

	if opts.pdf {
		doc, err := svc.SummaryPDF(batch)
		if err != nil {
			return err
		}
		pdfPath := filepath.Join(opts.outDir, doc.FileName)
		if err := os.WriteFile(pdfPath, doc.Content, 0o644); err != nil {
			return fmt.Errorf("write summary pdf: %w", err)
		}
		log.Info().Str("path", pdfPath).Msg("summary written")
	}

	return summary.WriteMarkdown(cmd.OutOrStdout(), batch.Summary)
}

func readInput(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Table{}, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	table, err := excel.ReadTable(f, filepath.Base(path))
	if err != nil {
		return model.Table{}, fmt.Errorf("could not read %s: %w", filepath.Base(path), err)
	}
	return table, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nurpe/payroll-breakdowns/internal/auth"
	"github.com/nurpe/payroll-breakdowns/internal/config"
	"github.com/nurpe/payroll-breakdowns/internal/excel"
	httphandler "github.com/nurpe/payroll-breakdowns/internal/http"
	"github.com/nurpe/payroll-breakdowns/internal/http/middleware"
	"github.com/nurpe/payroll-breakdowns/internal/logger"
	"github.com/nurpe/payroll-breakdowns/internal/pdf"
	"github.com/nurpe/payroll-breakdowns/internal/service"
	"github.com/nurpe/payroll-breakdowns/internal/session"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Environment)

	sessions := session.NewStore(cfg.Auth.SessionTTL)
	issuer := auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.SessionTTL)
	payrollService := service.NewPayrollService(sessions, issuer, excel.NewGenerator(), pdf.NewGenerator(), cfg, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(payrollService, log, cfg.HTTP.UploadMaxBytes)
	authMiddleware := middleware.Auth(tokenParser, payrollService)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins)

	addr := cfg.HTTP.Addr()
	log.Info().Str("addr", addr).Msg("starting payroll service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return err
	}
	return nil
}

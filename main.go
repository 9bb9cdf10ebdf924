package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"timeclock/audit"
	"timeclock/config"
	"timeclock/database"
	"timeclock/handlers"
	"timeclock/matcher"
	"timeclock/middleware"
	"timeclock/models"
	"timeclock/parser"
	"timeclock/recon"
	"timeclock/roster"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfg     *config.Config
	logger  *zap.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "timeclock",
	Short: "Biometric punch ingestion and attendance reconciliation",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg = config.Load()
		middleware.SetJWTSecret(cfg.JWTSecret)
		if err := database.Init(cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily audit sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var (
	ingestFile string
	ingestDate string
	ingestSite string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Reconcile one punch dump from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		fileDate, err := time.Parse("2006-01-02", ingestDate)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD")
		}
		f, err := os.Open(ingestFile)
		if err != nil {
			return fmt.Errorf("opening punch file: %w", err)
		}
		defer f.Close()

		summary, err := ingestReader(cmd.Context(), f, ingestFile, fileDate, ingestSite)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var rosterFile string

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Load employees and shift assignments from a YAML roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(rosterFile)
		if err != nil {
			return fmt.Errorf("opening roster: %w", err)
		}
		defer f.Close()

		rf, err := roster.Load(f)
		if err != nil {
			return err
		}
		return roster.Apply(database.GetDB(), rf, logger)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete audit trail rows older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		sweeper := audit.NewSweeper(database.GetDB(), cfg.RetentionDays, logger)
		deleted, err := sweeper.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d audit rows\n", deleted)
		return nil
	},
}

var absencesDate string

var absencesCmd = &cobra.Command{
	Use:   "absences",
	Short: "Mark ncns for an elapsed shift-date with no punches",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := time.Parse("2006-01-02", absencesDate)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD")
		}
		engine := newEngine()
		created, err := engine.CloseOutAbsences(cmd.Context(), date, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("created %d ncns records\n", created)
		return nil
	},
}

func ingestReader(ctx context.Context, r io.Reader, filename string, fileDate time.Time, site string) (recon.Summary, error) {
	parsed, err := parser.Parse(r, filename)
	if err != nil {
		return recon.Summary{}, err
	}
	if site == "" {
		site = cfg.DefaultSite
	}
	scans := make([]recon.Scan, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		scans = append(scans, recon.Scan{
			DeviceID:   row.DeviceNo,
			DeviceUser: row.UserID,
			RawName:    row.Name,
			Mode:       row.Mode,
			Timestamp:  row.Timestamp,
		})
	}
	return newEngine().Ingest(ctx, scans, fileDate, site, parsed.Warnings)
}

func newEngine() *recon.Engine {
	return recon.NewEngine(database.GetDB(), logger, matcher.Config{
		PreferTwoLetter: cfg.PreferTwoLetter,
	})
}

func runServe() error {
	engine := newEngine()

	authHandler := handlers.NewAuthHandler(cfg, logger)
	ingestHandler := handlers.NewIngestHandler(cfg, engine, logger)
	verificationHandler := handlers.NewVerificationHandler(engine, logger)

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Post("/api/login", authHandler.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		r.Post("/api/change-password", authHandler.ChangePassword)

		// Ingestion and verification need HR or admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleHR))

			r.Post("/api/ingest", ingestHandler.Ingest)
			r.Post("/api/absences", ingestHandler.CloseOutAbsences)
			r.Get("/api/verification", verificationHandler.Queue)
			r.Post("/api/verification/advised", verificationHandler.MarkAdvised)
			r.Post("/api/verification/delete", verificationHandler.DeleteRecords)
			r.Post("/api/verification/resolve", verificationHandler.ResolveScans)
			r.Post("/api/verification/{id}", verificationHandler.UpdateRecord)
			r.Get("/api/stats", verificationHandler.Stats)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go audit.NewSweeper(database.GetDB(), cfg.RetentionDays, logger).Run(ctx)

	logger.Info("server starting", zap.String("port", cfg.ServerPort))
	return http.ListenAndServe(":"+cfg.ServerPort, router)
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "punch dump file (required)")
	ingestCmd.Flags().StringVarP(&ingestDate, "date", "d", "", "declared file date YYYY-MM-DD (required)")
	ingestCmd.Flags().StringVarP(&ingestSite, "site", "s", "", "site identifier")
	_ = ingestCmd.MarkFlagRequired("file")
	_ = ingestCmd.MarkFlagRequired("date")

	rosterCmd.Flags().StringVarP(&rosterFile, "file", "f", "", "roster YAML file (required)")
	_ = rosterCmd.MarkFlagRequired("file")

	absencesCmd.Flags().StringVarP(&absencesDate, "date", "d", "", "shift date YYYY-MM-DD (required)")
	_ = absencesCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(serveCmd, ingestCmd, rosterCmd, sweepCmd, absencesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

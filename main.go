package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"classtrack/config"
	"classtrack/db"
	"classtrack/export"
	"classtrack/handlers"
	"classtrack/logging"
	"classtrack/models"
	"classtrack/ocr"
	"classtrack/reminder"
	"classtrack/schedule"
	"classtrack/timetable"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger *zap.Logger
)

// app bundles the components shared by the commands.
type app struct {
	cfg      *config.Config
	redis    *redis.Client
	store    *schedule.Store
	importer *timetable.Importer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	client, err := db.InitializeRedisClient(ctx, db.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, err
	}

	store := schedule.NewStore(db.NewRedisService(client, logger), logger)
	store.Load(ctx)

	importer := &timetable.Importer{
		OCR:     ocr.NewTesseract(cfg.OCR.Binary, cfg.OCR.Language, logger),
		Sink:    store,
		Logger:  logger,
		Timeout: cfg.OCR.Timeout,
	}

	return &app{cfg: cfg, redis: client, store: store, importer: importer}, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		logger.Warn("Error closing Redis client", zap.Error(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "classtrack",
	Short: "Track class subjects, exams and attendance",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var seed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if seed && len(a.store.ListSubjects()) == 0 {
			seedInitialData(a.store)
		}

		reminders := reminder.NewScheduler(a.store, logger)
		go reminders.Run(ctx, a.cfg.Reminder.Interval)

		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery(), logging.Gin(logger))
		router.Use(cors.New(cors.Config{
			AllowOrigins: a.cfg.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
		handlers.NewAPIHandler(a.store, a.importer, reminders, logger).Register(router)

		srv := &http.Server{
			Addr:              a.cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting server", zap.String("addr", a.cfg.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to run server: %w", err)
			}
		case <-ctx.Done():
			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
		}
		return nil
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the schedule to a PDF or XLSX file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		write, err := exporterFor(exportOut)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		if err := write(f, a.store.ListSubjects(), a.store.ListExams()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Printf("Schedule written to %s\n", exportOut)
		return nil
	},
}

// exporterFor picks the document format from the file extension.
func exporterFor(path string) (func(w io.Writer, s []models.Subject, e []models.Exam) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return export.WritePDF, nil
	case ".xlsx":
		return export.WriteXLSX, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q, use .pdf or .xlsx", filepath.Ext(path))
	}
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a timetable image (.png, .jpg) or spreadsheet (.xlsx)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var added []models.Subject
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			added, err = a.importer.ImportSpreadsheet(f)
		} else {
			added, err = a.importer.ImportImage(cmd.Context(), f)
		}
		if err != nil {
			return err
		}

		for _, s := range added {
			fmt.Printf("Added %s (%s %s)\n", s.Name, strings.Join(s.Days, ", "), s.Time)
		}
		return nil
	},
}

// seedInitialData adds a small demo timetable
func seedInitialData(s *schedule.Store) {
	logger.Info("Adding demo data")

	subjects := []schedule.NewSubject{
		{Name: "Physics", Teacher: "Room 4", Days: []string{"monday", "wednesday"}, Times: map[string]string{"monday": "09:00", "wednesday": "09:00"}},
		{Name: "Mathematics", Teacher: "Room 12", Days: []string{"tuesday", "thursday"}, Times: map[string]string{"tuesday": "11:00", "thursday": "10:00"}},
	}
	for _, in := range subjects {
		if _, err := s.AddSubject(in); err != nil {
			logger.Warn("Error adding demo subject", zap.String("name", in.Name), zap.Error(err))
		}
	}

	exam := models.Exam{Name: "Physics midterm", Date: time.Now().AddDate(0, 1, 0).Format(time.DateOnly), Time: "10:00", Location: "Main hall"}
	if _, err := s.AddExam(exam); err != nil {
		logger.Warn("Error adding demo exam", zap.Error(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	serveCmd.Flags().BoolVar(&seed, "seed", false, "Add demo data when the schedule is empty")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "student_schedule.pdf", "Output file (.pdf or .xlsx)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command matchd serves content-based image similarity search over HTTP.
//
// Endpoints mirror the classic image-match service: /add, /delete,
// /search, /compare, /count, /list and /ping, all answering the JSON
// envelope {status, error, method, result}.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Mihuashi/match"
	"github.com/Mihuashi/match/fetch"
	"github.com/Mihuashi/match/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := match.NewJSONLogger(parseLevel(cfg.LogLevel))

	if err := run(cfg, logger); err != nil {
		logger.Error("matchd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *match.Logger) error {
	idx, err := store.Open(cfg.IndexPath)
	if err != nil {
		return err
	}

	fetchOpts := []fetch.Option{}
	if cfg.S3.Endpoint != "" {
		s3, err := minio.New(cfg.S3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
			Secure: cfg.S3.UseSSL,
		})
		if err != nil {
			return err
		}
		fetchOpts = append(fetchOpts, fetch.WithS3Client(s3))
	}

	m, err := match.New(idx,
		match.WithCutoff(cfg.Cutoff),
		match.WithAllOrientations(cfg.AllOrientations),
		match.WithMaxCandidates(cfg.MaxCandidates),
		match.WithFetcher(fetch.New(fetchOpts...)),
		match.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer m.Close()

	s := &server{m: m, logger: logger}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      gzhttp.GzipHandler(newRouter(s)),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("matchd listening", "addr", cfg.Listen, "index", cfg.IndexPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newRouter(s *server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/add", s.handleAdd).Methods(http.MethodPost)
	r.HandleFunc("/delete", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	r.HandleFunc("/count", s.handleCount).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/list", s.handleList).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet, http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusNotFound, envelope{Status: "fail", Error: []string{"not found"}})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusMethodNotAllowed, envelope{Status: "fail", Error: []string{"method not allowed"}})
	})
	return r
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

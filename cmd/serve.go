package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bitlatte/pressroom/internal/watcher"
)

var serverPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the site locally and rebuilds it on change",
	Long: `The serve command performs an initial build, then serves the output
directory over HTTP. The content, layouts and static directories are watched
and the site is rebuilt after every burst of changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.WithField("component", "serve")
		out := cmd.OutOrStdout()

		if _, err := runBuild(ctx, appConfig, out); err != nil {
			return fmt.Errorf("initial build failed: %w", err)
		}

		w, err := watcher.New(500*time.Millisecond, logger)
		if err != nil {
			return err
		}
		defer w.Close()

		for _, dir := range []string{appConfig.ContentDir, appConfig.LayoutsDir, appConfig.StaticDir} {
			if dir == "" || !isDir(dir) {
				continue
			}
			if err := w.AddRecursive(dir); err != nil {
				log.WithError(err).WithField("dir", dir).Warn("Not watching directory")
			}
		}

		go func() {
			err := w.Run(ctx, func(paths []string) {
				log.WithField("changes", len(paths)).Info("Rebuilding site")
				if _, err := runBuild(ctx, appConfig, out); err != nil {
					log.WithError(err).Error("Rebuild failed")
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Watcher stopped")
			}
		}()

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", serverPort),
			Handler:           noCache(appConfig.OutputDir),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		log.WithField("addr", "http://localhost"+server.Addr).Info("Serving site, press Ctrl+C to stop")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	},
}

// noCache serves dir without directory listings and with caching disabled.
func noCache(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(r.URL.Path), "index.html")); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		files.ServeHTTP(w, r)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func init() {
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 1313, "port to serve the site on")
	rootCmd.AddCommand(serveCmd)
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the transition compensation service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Load the statutory cap table (fatal if invalid)
  3. Initialize SQLite store
  4. Create engine, exporter and API handler
  5. Start the drift auditor
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: $PORT or 8080)
  -db      SQLite database path (default: $DB_PATH or transition.db)
           Use ":memory:" for in-memory database
  -caps    Cap table YAML (default: $CAP_TABLE_FILE or embedded table)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the auditor
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/transition.db"

  # Run with a new year's cap table
  ./server -caps="./caps-2027.yaml"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/workx/transition-engine/api"
	"github.com/workx/transition-engine/config"
	"github.com/workx/transition-engine/report"
	"github.com/workx/transition-engine/severance"
	"github.com/workx/transition-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	capsPath := flag.String("caps", cfg.CapTableFile, "Statutory cap table (YAML)")
	flag.Parse()

	caps, err := config.LoadCapTable(*capsPath)
	if err != nil {
		log.Fatalf("Failed to load cap table: %v", err)
	}
	years := caps.Years()
	log.Printf("Loaded statutory caps for %d years (%d-%d)", caps.Len(), years[0], years[len(years)-1])

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(
		severance.NewEngine(caps),
		store,
		report.NewPDF(),
		report.Branding{FirmName: cfg.FirmName, Footer: cfg.ReportFooter},
	)
	handler.Auditor.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	handler.Auditor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

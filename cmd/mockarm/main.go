// Package main implements a standalone mock Azure control plane for E2E
// testing of cloudgate against scripted provider behavior.
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openvis/cloudgate/internal/testutil/mockarm"
)

// getPort returns the port from the PORT environment variable or the default.
func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	return port
}

// setupShutdownHandler sets up graceful shutdown handling.
func setupShutdownHandler(httpServer *http.Server) <-chan bool {
	done := make(chan bool)
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down mockarm server...")
		//nolint:errcheck
		httpServer.Close()
		close(done)
	}()
	return done
}

// runHealthCheck performs an HTTP health check against the local server.
// Returns 0 on success, 1 on failure. Used by container HEALTHCHECK.
func runHealthCheck() int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:" + getPort() + "/subscriptions")
	if err != nil {
		return 1
	}
	//nolint:errcheck // Response body close errors are unrecoverable in health check
	defer resp.Body.Close()
	// 401 is fine: the listener answers, it just wants a bearer token.
	if resp.StatusCode >= http.StatusInternalServerError {
		return 1
	}
	return 0
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(runHealthCheck())
	}

	port := getPort()
	server := mockarm.NewHandler()

	// Seed a small world so manual poking works out of the box.
	server.AddSubscription("00000000-0000-0000-0000-000000000001", "Mock Subscription")
	server.AddLocation("00000000-0000-0000-0000-000000000001", "westeurope", "West Europe")
	server.AddVMSize("00000000-0000-0000-0000-000000000001", "westeurope", "Standard_B2s", 2, 4096)

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server.Handler(),
	}

	done := setupShutdownHandler(httpServer)

	log.Printf("mockarm listening on :%s", port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}

	<-done
	log.Println("mockarm stopped")
}

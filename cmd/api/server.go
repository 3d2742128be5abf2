package main

import (
	"errors"
	"net/http"
	"os"

	"card-assistant-backend/pkg/logger"
)

// serve blocks until a shutdown signal arrives or the listener fails.
// A listen failure (port taken, bad address) is returned without waiting for a signal.
func serve(srv *http.Server, quit <-chan os.Signal) error {
	listenErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		logger.Log.Error("Listen failed", "addr", srv.Addr, "error", err)
		return err
	case sig := <-quit:
		logger.Log.Info("Shutting down server...", "signal", sig.String())
		return nil
	}
}

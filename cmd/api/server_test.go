package main

import (
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"card-assistant-backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe(t *testing.T) {
	logger.Init("error")

	t.Run("Should return when the port is already taken", func(t *testing.T) {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer taken.Close()

		srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
		done := make(chan error, 1)
		go func() { done <- serve(srv, make(chan os.Signal)) }()

		select {
		case err := <-done:
			assert.Error(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("serve kept waiting for a signal after the listener failed")
		}
	})

	t.Run("Should return nil on a shutdown signal", func(t *testing.T) {
		srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
		quit := make(chan os.Signal, 1)
		quit <- syscall.SIGTERM

		assert.NoError(t, serve(srv, quit))
		_ = srv.Close()
	})
}

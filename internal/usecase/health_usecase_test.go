package usecase_test

import (
	"context"
	"errors"
	"testing"

	"card-assistant-backend/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestHealthUsecase_Check(t *testing.T) {
	t.Run("Should report ok when every dependency answers", func(t *testing.T) {
		uc := usecase.NewHealthUsecase(map[string]usecase.HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"local":    func(context.Context) error { return nil },
		})

		report, healthy := uc.Check(context.Background())

		assert.True(t, healthy)
		assert.Equal(t, map[string]string{"status": "ok", "postgres": "ok", "local": "ok"}, report)
	})

	t.Run("Should degrade and name the failing dependency", func(t *testing.T) {
		uc := usecase.NewHealthUsecase(map[string]usecase.HealthCheck{
			"postgres": func(context.Context) error { return errors.New("connection refused") },
			"local":    func(context.Context) error { return nil },
		})

		report, healthy := uc.Check(context.Background())

		assert.False(t, healthy)
		assert.Equal(t, "degraded", report["status"])
		assert.Equal(t, "connection refused", report["postgres"])
		assert.Equal(t, "ok", report["local"])
	})

	t.Run("Should be ok with no checks configured", func(t *testing.T) {
		report, healthy := usecase.NewHealthUsecase(nil).Check(context.Background())
		assert.True(t, healthy)
		assert.Equal(t, "ok", report["status"])
	})
}

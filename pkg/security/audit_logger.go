package security

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEvent names identity events worth keeping apart from the application log.
type AuditEvent string

const (
	AuditSignInSuccess     AuditEvent = "sign_in_success"
	AuditSignInFailed      AuditEvent = "sign_in_failed"
	AuditSilentSignIn      AuditEvent = "silent_sign_in"
	AuditSignOut           AuditEvent = "sign_out"
	AuditRemoteSignOutFail AuditEvent = "remote_sign_out_failed"
	AuditOAuthRejected     AuditEvent = "oauth_callback_rejected"
	AuditRateLimited       AuditEvent = "rate_limit_triggered"
	AuditProfileCreated    AuditEvent = "profile_created"
	AuditOnboardingReset   AuditEvent = "onboarding_reset"
)

// AuditLogger writes security events as structured JSON through zap.
type AuditLogger struct {
	zapLogger *zap.Logger
}

// NewAuditLogger builds a production zap logger tagged with service and env.
func NewAuditLogger(serviceName, environment string) *AuditLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return NewAuditLoggerFrom(logger.With(
		zap.String("service", serviceName),
		zap.String("env", environment),
	))
}

// NewAuditLoggerFrom wraps an existing zap logger (tests use zaptest/observer).
func NewAuditLoggerFrom(logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{zapLogger: logger}
}

// NopAuditLogger discards everything.
func NopAuditLogger() *AuditLogger {
	return NewAuditLoggerFrom(zap.NewNop())
}

func (a *AuditLogger) Info(event AuditEvent, userID, email string, fields ...zap.Field) {
	a.zapLogger.Info(string(event), a.base(event, userID, email, fields)...)
}

func (a *AuditLogger) Warn(event AuditEvent, userID, email string, fields ...zap.Field) {
	a.zapLogger.Warn(string(event), a.base(event, userID, email, fields)...)
}

func (a *AuditLogger) Sync() error {
	return a.zapLogger.Sync()
}

func (a *AuditLogger) base(event AuditEvent, userID, email string, fields []zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+3)
	out = append(out, zap.String("event", string(event)))
	if userID != "" {
		out = append(out, zap.String("user_id", userID))
	}
	if email != "" {
		out = append(out, zap.String("email", MaskEmail(email)))
	}
	return append(out, fields...)
}

// MaskEmail keeps the first character of the local part and the domain: j***@x.com.
func MaskEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}

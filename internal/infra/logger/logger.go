package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns a singleton zap.Logger configured for structured logging.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		lg, err = cfg.Build()
	})

	return lg, err
}

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

// WithRequestID annotates log with the request identifier carried by ctx,
// if any.
func WithRequestID(ctx context.Context, log *zap.Logger) *zap.Logger {
	if ctx == nil || log == nil {
		return log
	}
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		return log.With(zap.String("request_id", id))
	}
	return log
}

// MaskIP performs partial IP masking, showing first 2 octets for IPv4
// Example: 192.168.1.100 -> 192.168.*.*
// For IPv6, shows first 4 groups
// Example: 2001:0db8:85a3:0000:0000:8a2e:0370:7334 -> 2001:0db8:85a3:0000:*:*:*:*
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	// IPv4 masking
	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			return parts[0] + "." + parts[1] + ".*.*"
		}
	}

	// IPv6 masking
	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) >= 4 {
			return strings.Join(parts[:4], ":") + ":*:*:*:*"
		}
	}

	return "***"
}

// MaskIdentifier masks the address portion of a scoped limit identifier such
// as "ip:192.168.1.100". User-scoped identifiers carry opaque platform IDs
// and pass through unchanged.
func MaskIdentifier(identifier string) string {
	if rest, ok := strings.CutPrefix(identifier, "ip:"); ok {
		return "ip:" + MaskIP(rest)
	}
	return identifier
}

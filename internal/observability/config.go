package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/nexuscore/nexuscore/internal/config"
)

// Config collects the logging and tracing knobs. Values come from the
// application config with OTEL_* environment variables taking
// precedence, so deployment manifests can tune telemetry without a
// rebuild.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	service := strings.TrimSpace(cfg.AppName)
	if service == "" {
		service = "nexuscore"
	}

	protocol := strings.ToLower(strings.TrimSpace(envOr("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))
	// The traces-specific override wins over the generic one.
	if tracesProtocol := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); tracesProtocol != "" {
		protocol = strings.ToLower(tracesProtocol)
	}

	return Config{
		ServiceName:          service,
		Environment:          strings.TrimSpace(envOr("DEPLOYMENT_ENV", cfg.Environment)),
		Version:              strings.TrimSpace(envOr("SERVICE_VERSION", cfg.AppVersion)),
		LogLevel:             strings.ToLower(strings.TrimSpace(envOr("LOG_LEVEL", "info"))),
		LogFormat:            strings.ToLower(strings.TrimSpace(envOr("LOG_FORMAT", "json"))),
		OtelEnabled:          envOrBool("OTEL_ENABLED", true),
		OtelExporterEndpoint: strings.TrimSpace(envOr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)),
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    envOrFloat("OTEL_SAMPLING_RATIO", 0.1),
	}
}

// Debug reports whether verbose request logging should be on: either
// an explicit debug log level or a non-production environment.
func (c Config) Debug() bool {
	if strings.ToLower(strings.TrimSpace(c.LogLevel)) == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func envOr(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func envOrBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envOrFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

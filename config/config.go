// Package config resolves the logging facade's configuration from explicit
// options, process environment variables and hard-coded defaults, in that
// priority order (highest first). Resolution never fails: invalid values
// degrade to their defaults and are reported as warnings for the caller to
// surface diagnostically.
package config

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
)

// Environment names conventionally carried in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Process-environment variables consulted during Load.
const (
	EnvVarSinkToken    = "SHIPLOG_SINK_TOKEN"
	EnvVarSinkEndpoint = "SHIPLOG_SINK_ENDPOINT"
	EnvVarService      = "SERVICE_NAME"
	EnvVarEnvironment  = "APP_ENV"
	EnvVarVersion      = "SERVICE_VERSION"
	EnvVarLevel        = "SHIPLOG_LEVEL"
	EnvVarFilePath     = "SHIPLOG_FILE_PATH"
	EnvVarNATSURL      = "SHIPLOG_NATS_URL"
	EnvVarAMQPURL      = "SHIPLOG_AMQP_URL"
	EnvVarAMQPExchange = "SHIPLOG_AMQP_EXCHANGE"
)

const (
	defaultService        = "unknown-service"
	defaultEnvironment    = EnvDevelopment
	defaultVersion        = "0.0.0"
	defaultLevel          = "info"
	defaultAMQPExchange   = "logs"
	defaultAMQPRoutingKey = "all"
)

// envKeyMap maps recognized environment variables onto koanf keys. Anything
// else in the environment is ignored.
var envKeyMap = map[string]string{
	EnvVarSinkToken:    "sink.token",
	EnvVarSinkEndpoint: "sink.endpoint",
	EnvVarService:      "service",
	EnvVarEnvironment:  "environment",
	EnvVarVersion:      "version",
	EnvVarLevel:        "level",
	EnvVarFilePath:     "file.path",
	EnvVarNATSURL:      "nats.url",
	EnvVarAMQPURL:      "amqp.url",
	EnvVarAMQPExchange: "amqp.exchange",
}

// Options carries explicit configuration supplied by the embedding
// application. Zero-valued fields fall through to the environment and then
// to defaults.
type Options struct {
	Service      string
	Environment  string
	Version      string
	MinLevel     string
	SinkToken    string
	SinkEndpoint string
	FilePath     string
	NATSURL      string
	AMQPURL      string
	AMQPExchange string
	// Pretty overrides console formatting. When nil, pretty output is
	// enabled in the development environment only.
	Pretty *bool
}

// Config is the fully resolved configuration handed to the logger factory.
type Config struct {
	Service     string     `koanf:"service"`
	Environment string     `koanf:"environment"`
	Version     string     `koanf:"version"`
	MinLevel    string     `koanf:"level" validate:"omitempty,oneof=silly debug verbose http info warn warning error"`
	Sink        SinkConfig `koanf:"sink"`
	File        FileConfig `koanf:"file"`
	NATS        NATSConfig `koanf:"nats"`
	AMQP        AMQPConfig `koanf:"amqp"`
	Pretty      bool       `koanf:"pretty"`

	// Warnings records every degradation applied during resolution.
	Warnings []error `koanf:"-"`
}

// SinkConfig enables remote delivery when Token is non-empty.
type SinkConfig struct {
	Token    string `koanf:"token"`
	Endpoint string `koanf:"endpoint" validate:"omitempty,url"`
}

// FileConfig enables the local file sink when Path is non-empty.
type FileConfig struct {
	Path string `koanf:"path"`
}

// NATSConfig enables subject-based broker delivery when URL is non-empty.
type NATSConfig struct {
	URL string `koanf:"url"`
}

// AMQPConfig enables exchange-based broker delivery when URL is non-empty.
type AMQPConfig struct {
	URL        string `koanf:"url"`
	Exchange   string `koanf:"exchange"`
	RoutingKey string `koanf:"routing_key"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load resolves configuration with priority: explicit options > environment
// variables > defaults. It always returns a usable Config; problems are
// collected in Config.Warnings rather than returned as an error.
func Load(opts Options) *Config {
	cfg := &Config{}

	k := koanf.New(".")
	loadDefaults(k)

	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: transformEnv}), nil); err != nil {
		cfg.Warnings = append(cfg.Warnings, NewInvalidFieldError("environment", err.Error()))
	}

	if err := k.Load(confmap.Provider(optionOverrides(opts), "."), nil); err != nil {
		cfg.Warnings = append(cfg.Warnings, NewInvalidFieldError("options", err.Error()))
	}

	if err := k.Unmarshal("", cfg); err != nil {
		// Leave whatever unmarshaled and patch the rest from defaults.
		cfg.Warnings = append(cfg.Warnings, NewInvalidFieldError("config", err.Error()))
	}

	cfg.Sink.Endpoint = NormalizeEndpoint(cfg.Sink.Endpoint)

	if opts.Pretty != nil {
		cfg.Pretty = *opts.Pretty
	} else {
		cfg.Pretty = cfg.Environment == EnvDevelopment
	}

	applyValidation(cfg)
	return cfg
}

func loadDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"service":          defaultService,
		"environment":      defaultEnvironment,
		"version":          defaultVersion,
		"level":            defaultLevel,
		"sink.token":       "",
		"sink.endpoint":    "",
		"file.path":        "",
		"nats.url":         "",
		"amqp.url":         "",
		"amqp.exchange":    defaultAMQPExchange,
		"amqp.routing_key": defaultAMQPRoutingKey,
	}
	// confmap over literals cannot fail.
	_ = k.Load(confmap.Provider(defaults, "."), nil)
}

// transformEnv admits only the recognized variables, mapped to their koanf
// keys. Returning an empty key drops the variable.
func transformEnv(key, value string) (string, any) {
	mapped, ok := envKeyMap[key]
	if !ok || value == "" {
		return "", nil
	}
	return mapped, value
}

func optionOverrides(opts Options) map[string]any {
	overrides := map[string]any{}
	set := func(key, value string) {
		if value != "" {
			overrides[key] = value
		}
	}
	set("service", opts.Service)
	set("environment", opts.Environment)
	set("version", opts.Version)
	set("level", opts.MinLevel)
	set("sink.token", opts.SinkToken)
	set("sink.endpoint", opts.SinkEndpoint)
	set("file.path", opts.FilePath)
	set("nats.url", opts.NATSURL)
	set("amqp.url", opts.AMQPURL)
	set("amqp.exchange", opts.AMQPExchange)
	return overrides
}

// NormalizeEndpoint assumes secure transport for endpoints given without a
// scheme.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

// applyValidation checks the resolved config and degrades invalid fields to
// their defaults, recording a warning per degradation.
func applyValidation(cfg *Config) {
	err := validate.Struct(cfg)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		cfg.Warnings = append(cfg.Warnings, NewInvalidFieldError("config", err.Error()))
		return
	}

	for _, fe := range fieldErrs {
		switch fe.StructNamespace() {
		case "Config.MinLevel":
			cfg.Warnings = append(cfg.Warnings, NewInvalidFieldError("level",
				"unknown level "+strings.ToLower(fe.Value().(string))+", using "+defaultLevel))
			cfg.MinLevel = defaultLevel
		case "Config.Sink.Endpoint":
			cfg.Warnings = append(cfg.Warnings, NewInvalidFieldError("sink.endpoint",
				"not a valid URL, remote delivery disabled"))
			cfg.Sink.Endpoint = ""
			cfg.Sink.Token = ""
		default:
			cfg.Warnings = append(cfg.Warnings, NewInvalidFieldError(fe.StructNamespace(), fe.Tag()))
		}
	}
}

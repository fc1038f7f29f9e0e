package configuration

import (
	"fmt"
	"os"
	"strings"

	"easemyday/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

func parseArrayFields(k *koanf.Koanf) {
	for _, field := range ArrayConfigFields {
		if stringVal := k.String(field); stringVal != "" {
			stringVal = strings.Trim(stringVal, "[]")
			var items []string
			if strings.Contains(stringVal, ",") {
				items = strings.Split(stringVal, ",")
			} else {
				items = strings.Fields(stringVal)
			}
			for i, item := range items {
				items[i] = strings.TrimSpace(item)
			}
			err := k.Set(field, items)
			if err != nil {
				zap.L().
					Error("Error parsing array field", zap.String("field", field), zap.Error(err))
			}
		}
	}
}

func parseAuthProviders(k *koanf.Koanf) {
	providersStr := k.String("auth.providers.keys")
	if providersStr != "" {
		providers := strings.Split(providersStr, ",")
		for _, provider := range providers {
			providerUpper := strings.ToUpper(provider)
			typeKey := fmt.Sprintf("AUTH__PROVIDERS__%s__TYPE", providerUpper)
			providerType := strings.ToUpper(os.Getenv(typeKey))

			for _, key := range AuthProviderKeys {
				keyUpper := strings.ToUpper(key)
				envKey := fmt.Sprintf(
					"AUTH__PROVIDERS__%s__%s__%s",
					providerUpper,
					providerType,
					keyUpper,
				)
				if envVal := os.Getenv(envKey); envVal != "" {
					err := k.Set(
						fmt.Sprintf("auth.providers.%s.%s.%s", provider, providerType, key),
						envVal,
					)
					if err != nil {
						zap.L().
							Error("Failed to unmarshal value", zap.Error(err), zap.String("key", key))
					}
				}
			}
		}
		// Remove the keys entry to avoid conflict with providers map
		k.Delete("auth.providers.keys")
	}
}

func readEnvVars(k *koanf.Koanf) {
	err := k.Load(env.Provider("", ".", func(s string) string {
		s = strings.ToLower(s)
		segments := strings.Split(s, "__")
		result := strings.Join(segments, ".")
		return result
	}), nil)
	if err != nil {
		zap.L().Warn("Error loading environment variables", zap.Error(err))
	}

	parseArrayFields(k)
	parseAuthProviders(k)
}

func readFileConfig(k *koanf.Koanf) {
	configFilePath := os.Getenv("CONFIG_FILE_PATH")
	var filePath string
	if configFilePath == "" {
		for _, path := range ConfigFileSearchPaths {
			if _, err := os.Stat(path); err == nil {
				filePath = path
				break
			}
		}
	} else {
		filePath = configFilePath
	}

	if filePath != "" {
		err := k.Load(file.Provider(filePath), yaml.Parser())
		if err != nil {
			zap.L().
				Fatal("Fatal error loading config file", zap.String("path", filePath), zap.Error(err))
		}
		zap.L().Info("Read configuration from file " + filePath)
	} else {
		zap.L().Warn("No configuration file found")
	}
}

func loadDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"app.profile":                "default",
		"app.log_level":              "info",
		"app.port":                   8080,
		"app.rate_limit_per_minute":  120,
		"app.require_verified_email": true,

		"app.password.min_length":    8,
		"app.password.require_upper": true,
		"app.password.require_lower": true,
		"app.password.require_digit": true,

		"app.flows.redirect_delay":     2,
		"app.flows.poll_interval":      3,
		"app.flows.pending_action_ttl": 15,

		"app.session.cookie_name":   "emd_visitor",
		"app.session.secure_cookie": true,
		"app.session.ttl":           720,
		"app.session.idle_timeout":  30,

		"database.port":    int32(5432),
		"database.sslmode": "disable",

		"identity.type":                     "local",
		"identity.local.token_expiry":       720,
		"identity.local.reset_code_expiry":  60,
		"identity.local.verify_code_expiry": 24,
		"identity.local.resend_cooldown":    60,

		"events.queues.notifications.name":  "notifications",
		"events.queues.identity_state.name": "identity_state",

		"notifier.smtp.enable_tls":      false,
		"notifier.smtp.skip_verify_tls": false,

		"tracing.service_name": AppName,
		"tracing.sample_ratio": 1.0,

		"profiling.application_name": AppName,
	}

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		zap.L().Fatal("Failed to load default configuration", zap.Error(err))
	}
}

func setIfMissing(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func loadConditionalDefaults(k *koanf.Koanf) {
	if k.String("identity.type") == "firebase" {
		setIfMissing(k, "identity.firebase.base_url", "https://identitytoolkit.googleapis.com/v1")
		setIfMissing(k, "identity.firebase.token_url", "https://securetoken.googleapis.com/v1/token")
		setIfMissing(k, "identity.firebase.timeout", 10)
	}
	if k.String("database.type") == "sqlite" {
		setIfMissing(k, "database.path", "easemyday.db")
	}
	if k.String("events.type") == "gcp" {
		setIfMissing(k, "events.gcp.subscription_suffix", "-sub")
	}
}

// decode unmarshals the merged layers and validates the result.
func decode(k *koanf.Koanf) (models.Configuration, error) {
	var config models.Configuration
	err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "mapstructure"})
	if err != nil {
		return config, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	validate := validator.New()
	if err = validate.Struct(config); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func Read() models.Configuration {
	k := koanf.New(".")

	loadDefaults(k)
	readFileConfig(k)
	readEnvVars(k)
	loadConditionalDefaults(k)

	config, err := decode(k)
	if err != nil {
		zap.L().Fatal("Failed to read configuration", zap.Error(err))
	}

	return config
}

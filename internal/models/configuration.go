package models

import "time"

type Configuration struct {
	App       AppConfiguration       `mapstructure:"app"       validate:"required"`
	Database  DatabaseConfiguration  `mapstructure:"database"  validate:"required"`
	Identity  IdentityConfiguration  `mapstructure:"identity"  validate:"required"`
	Auth      AuthConfiguration      `mapstructure:"auth"`
	Cache     CacheConfiguration     `mapstructure:"cache"     validate:"required"`
	Events    EventsConfiguration    `mapstructure:"events"    validate:"required"`
	Notifier  NotifierConfiguration  `mapstructure:"notifier"  validate:"required"`
	Activity  ActivityConfiguration  `mapstructure:"activity"  validate:"required"`
	Tracing   TracingConfiguration   `mapstructure:"tracing"`
	Profiling ProfilingConfiguration `mapstructure:"profiling"`
}

type AppConfiguration struct {
	Profile              string                 `mapstructure:"profile"                validate:"oneof=default api worker"`
	APIURL               string                 `mapstructure:"api_url"                validate:"required"`
	WebURL               string                 `mapstructure:"web_url"                validate:"required"`
	AllowedOrigins       []string               `mapstructure:"allowed_origins"        validate:"required"`
	LogLevel             string                 `mapstructure:"log_level"              validate:"oneof=debug info warn error fatal panic"`
	Port                 int                    `mapstructure:"port"                   validate:"gte=80,lte=65535"`
	TrustedProxies       []string               `mapstructure:"trusted_proxies"`
	RateLimitPerMinute   int                    `mapstructure:"rate_limit_per_minute"  validate:"gte=1"`
	RequireVerifiedEmail bool                   `mapstructure:"require_verified_email"`
	Password             PasswordConfiguration  `mapstructure:"password"`
	Flows                FlowsConfiguration     `mapstructure:"flows"`
	Session              SessionConfiguration   `mapstructure:"session"`
}

// PasswordConfiguration is the single password policy applied to sign-up,
// reset confirmation and password change.
type PasswordConfiguration struct {
	MinLength    int  `mapstructure:"min_length"    validate:"gte=6,lte=72"`
	RequireUpper bool `mapstructure:"require_upper"`
	RequireLower bool `mapstructure:"require_lower"`
	RequireDigit bool `mapstructure:"require_digit"`
}

type FlowsConfiguration struct {
	RedirectDelay    int `mapstructure:"redirect_delay"     validate:"gte=0,lte=30"`
	PollInterval     int `mapstructure:"poll_interval"      validate:"gte=1,lte=60"`
	PendingActionTTL int `mapstructure:"pending_action_ttl" validate:"gte=1,lte=1440"`
}

type SessionConfiguration struct {
	CookieName   string `mapstructure:"cookie_name"   validate:"required"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
	TTL          int    `mapstructure:"ttl"           validate:"gte=1,lte=8760"`
	IdleTimeout  int    `mapstructure:"idle_timeout"  validate:"gte=1,lte=1440"`
}

type DatabaseConfiguration struct {
	Type     string `mapstructure:"type"     validate:"required,oneof=postgres sqlite"`
	Host     string `mapstructure:"host"     validate:"required_if=Type postgres"`
	Port     int32  `mapstructure:"port"     validate:"gte=80,lte=65535"`
	User     string `mapstructure:"user"     validate:"required_if=Type postgres"`
	Password string `mapstructure:"password" validate:"required_if=Type postgres"`
	Name     string `mapstructure:"name"     validate:"required_if=Type postgres"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"     validate:"required_if=Type sqlite"`
}

type IdentityConfiguration struct {
	Type     string                         `mapstructure:"type"     validate:"required,oneof=local firebase"`
	Local    *LocalIdentityConfiguration    `mapstructure:"local"    validate:"required_if=Type local"`
	Firebase *FirebaseIdentityConfiguration `mapstructure:"firebase" validate:"required_if=Type firebase"`
}

type LocalIdentityConfiguration struct {
	JWTSecret        string `mapstructure:"jwt_secret"         validate:"required,min=32"`
	TokenExpiry      int    `mapstructure:"token_expiry"       validate:"gte=1,lte=8760"`
	ResetCodeExpiry  int    `mapstructure:"reset_code_expiry"  validate:"gte=5,lte=1440"`
	VerifyCodeExpiry int    `mapstructure:"verify_code_expiry" validate:"gte=1,lte=168"`
	ResendCooldown   int    `mapstructure:"resend_cooldown"    validate:"gte=0,lte=3600"`
}

// FirebaseIdentityConfiguration points at the Identity Toolkit REST API.
// The project's email action handler URL must be set to <api_url>/auth/action
// so that provider-generated links reach the dispatcher.
type FirebaseIdentityConfiguration struct {
	APIKey   string `mapstructure:"api_key"   validate:"required"`
	BaseURL  string `mapstructure:"base_url"  validate:"required,http_url"`
	TokenURL string `mapstructure:"token_url" validate:"required,http_url"`
	Timeout  int    `mapstructure:"timeout"   validate:"gte=1,lte=60"`
}

type AuthConfiguration struct {
	Providers map[string]ProviderConfiguration `mapstructure:"providers" validate:"omitempty,dive"`
}

type ProviderConfiguration struct {
	Name               string            `mapstructure:"name"                 validate:"required"`
	Type               ProviderType      `mapstructure:"type"                 validate:"required,oneof=oidc"`
	OIDC               OIDCConfiguration `mapstructure:"oidc"                 validate:"required"`
	Domains            []string          `mapstructure:"domains"`
	FirebaseProviderID string            `mapstructure:"firebase_provider_id"`
}

type OIDCConfiguration struct {
	ClientID     string `mapstructure:"client_id"     validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	Issuer       string `mapstructure:"issuer"        validate:"required"`
}

type CacheConfiguration struct {
	Type   string                    `mapstructure:"type"   validate:"required,oneof=redis valkey memory"`
	Redis  *RedisCacheConfiguration  `mapstructure:"redis"  validate:"required_if=Type redis"`
	Valkey *ValkeyCacheConfiguration `mapstructure:"valkey" validate:"required_if=Type valkey"`
}

type RedisCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

type ValkeyCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

type QueueConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type EventsConfiguration struct {
	Type      string                 `mapstructure:"type"      validate:"required,oneof=jetstream gcp aws memory"`
	Queues    map[string]QueueConfig `mapstructure:"queues"    validate:"required"`
	Jetstream *JetStreamEventsConfig `mapstructure:"jetstream" validate:"required_if=Type jetstream"`
	PubSub    *PubSubConfiguration   `mapstructure:"gcp"       validate:"required_if=Type gcp"`
}

type PubSubConfiguration struct {
	ProjectID          string `mapstructure:"project_id"          validate:"required"`
	SubscriptionSuffix string `mapstructure:"subscription_suffix"`
}

type JetStreamEventsConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port string `mapstructure:"port" validate:"required"`
}

type MailerConfiguration struct {
	Host          string `mapstructure:"host"            validate:"required"`
	Port          int    `mapstructure:"port"            validate:"required"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Sender        string `mapstructure:"sender"          validate:"required"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	SkipVerifyTLS bool   `mapstructure:"skip_verify_tls"`
}

type NotifierConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=smtp filesystem"`
	SMTP       *MailerConfiguration             `mapstructure:"smtp"       validate:"required_if=Type smtp"`
	Filesystem *FilesystemNotifierConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemNotifierConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type ActivityConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=filesystem"`
	Filesystem *FilesystemActivityConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemActivityConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type TracingConfiguration struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"     validate:"required_if=Enabled true"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type ProfilingConfiguration struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServerAddress   string `mapstructure:"server_address"   validate:"required_if=Enabled true"`
	ApplicationName string `mapstructure:"application_name"`
}

// FlowConfig groups the timings shared by the action-link screens.
type FlowConfig struct {
	RedirectDelay    time.Duration
	PollInterval     time.Duration
	PendingActionTTL time.Duration
}

// GetFlowConfig converts the configured seconds and minutes into durations.
func (c *AppConfiguration) GetFlowConfig() FlowConfig {
	return FlowConfig{
		RedirectDelay:    time.Duration(c.Flows.RedirectDelay) * time.Second,
		PollInterval:     time.Duration(c.Flows.PollInterval) * time.Second,
		PendingActionTTL: time.Duration(c.Flows.PendingActionTTL) * time.Minute,
	}
}

// ActionURL is the dispatcher endpoint embedded in every provider email.
func (c *AppConfiguration) ActionURL() string {
	return c.APIURL + "/auth/action"
}

package configuration

const AppName = "easemyday"

const (
	CacheMaxAppIdentityLifetime = 60
	CacheAppIdentityKey         = "app:identity"
	CacheAppRateLimitKey        = "app:ratelimit:%s"
	CacheAppWorkerLockKey       = "app:worker:lock:%s" //nolint:gosec // not a credential
	CacheAppWorkerLockTTL       = 60
	CacheAppWorkerLockRefresh   = 55
	CachePendingActionKey       = "pending_action:%s"
	CacheVisitorCredentialKey   = "visitor:credential:%s" //nolint:gosec // cache key, not a credential
	CacheVerificationCooldown   = "cooldown:verify:%s"
)

const (
	EventsNotifications = "notifications"
	EventsIdentityState = "identity_state"
)

// Screen paths the front-end renders. Redirects and flow hints always point at one of these.
const (
	ScreenHome          = "/"
	ScreenLogin         = "/login"
	ScreenResetPassword = "/reset-password"
	ScreenVerifyEmail   = "/verify-email"
	ScreenDashboard     = "/dashboard"
)

const (
	ActionCodeSecretLength = 32
	ActionCodeMaxAttempts  = 3
	InviteCodeLength       = 8
)

const (
	ActionCodeCleanupInterval = 600
	VisitorSweepInterval      = 60
)

// Identity and messaging provider types.
const (
	IdentityLocal     = "local"
	IdentityFirebase  = "firebase"
	ProviderJetstream = "jetstream"
	ProviderGCP       = "gcp"
	ProviderAWS       = "aws"
	ProviderMemory    = "memory"
)

var ArrayConfigFields = []string{
	"app.trusted_proxies",
	"app.allowed_origins",
	"cache.redis.hosts",
	"cache.valkey.hosts",
}

var ConfigFileSearchPaths = []string{
	"./config.yaml",
	"templates/config.yaml",
}

var AuthProviderKeys = []string{
	"name",
	"client_id",
	"client_secret",
	"issuer",
}

package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Supabase Auth
	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseProjectRef string `envconfig:"SUPABASE_PROJECT_REF"`
	SupabaseAnonKey    string `envconfig:"SUPABASE_ANON_KEY"`

	// Supabase Storage (S3 compatible endpoint)
	StorageEndpoint     string `envconfig:"STORAGE_S3_ENDPOINT"`
	StorageRegion       string `envconfig:"STORAGE_S3_REGION" default:"us-east-1"`
	AvatarBucketName    string `envconfig:"AVATAR_BUCKET_NAME" default:"avatars"`
	AvatarPublicBaseURL string `envconfig:"AVATAR_PUBLIC_BASE_URL"`

	// Realtime fan-out. Empty means in-process only.
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	RedisChannel string `envconfig:"REDIS_CHANNEL" default:"neothink:notifications"`

	// Auth Configuration
	CookieName            string `envconfig:"SESSION_COOKIE_NAME" default:"nt_session"`
	SessionMaxAgeSec      int    `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days
	SessionIdleTimeoutSec int    `envconfig:"SESSION_IDLE_TIMEOUT_SEC" default:"86400"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Auth endpoint throttling
	RateLimitRequests  int `envconfig:"RATE_LIMIT_REQUESTS" default:"5"`
	RateLimitWindowSec int `envconfig:"RATE_LIMIT_WINDOW_SEC" default:"60"`

	// Comma separated IPs or CIDRs of reverse proxies whose forwarding
	// headers are believed. Empty means the peer address is always used.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// Notification delivery
	Timezone         string `envconfig:"TIMEZONE" default:"UTC"`
	DigestHour       int    `envconfig:"DIGEST_HOUR" default:"9"`
	SweepIntervalSec int    `envconfig:"SWEEP_INTERVAL_SEC" default:"3600"`
	RetentionDays    int    `envconfig:"NOTIFICATION_RETENTION_DAYS" default:"30"`
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

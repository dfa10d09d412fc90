package constants

import "time"

// Database pool settings
const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Timeouts
const (
	DefaultTimeout       = 10 * time.Second
	SourceFetchTimeout   = 10 * time.Second
	ServerShutdownWindow = 15 * time.Second
)

// Calendar merge defaults
const (
	MergeDefaultWindowDays   = 30
	MergeDefaultPerSourceMax = 50
	MergeFanOutLimit         = 4
	MergeFeedCacheTTL        = 2 * time.Minute
)

// Redis key prefixes
const (
	RedisKeyOAuthState     = "oauth:state:"
	RedisKeyTokenBlacklist = "token:blacklist:"
	RedisKeyEventTally     = "availability:tally:"
)

// Cache TTLs
const (
	OAuthStateTTL     = 10 * time.Minute
	EventTallyTTL     = 5 * time.Minute
	TokenBlacklistTTL = 24 * time.Hour
)

// Token scopes
const (
	ScopeTokenAccess  = "access"
	ScopeTokenRefresh = "refresh"
)

// Share export
const (
	ShareExportTTL = 15 * time.Minute
)

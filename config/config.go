// sixchan/config/config.go
package config

const (
	AppVersion = "0.9-beta"

	// Form & Post Limits
	AnonNameMaxLen      = 50
	BoardCategoryMaxLen = 30
	BoardNameMaxLen     = 30
	ThreadNameMaxLen    = 100
	BodyMaxLen          = 1000
	EmailMaxLen         = 255
	UsernameMaxLen      = 15
	DisplayNameMaxLen   = 50
	IntroductionMaxLen  = 1000
	ReportDetailMaxLen  = 1000

	// Ledger
	MaxResesPerThread = 1000

	// Page sizes
	ThreadsPerPage        = 15
	ThreadsHistoryPerPage = 5
	ReportsPerPage        = 20
	FavoritesPerPage      = 20
	ModLogPerPage         = 50
	PaginationDelta       = 2

	// Rendering placeholders
	AnonymousName = "null"
	RedactedBody  = "This post was removed by a moderator."

	// Token lifetimes
	ActivationTokenTTL  = "24h"
	EmailChangeTokenTTL = "1h"

	// Rate Limiting Defaults
	DefaultRateLimitEvery  = "30s"
	DefaultRateLimitBurst  = 3
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"
)

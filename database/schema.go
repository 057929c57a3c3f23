package database

import "strings"

// schemaTemplate is shared by both drivers; dialect tokens are substituted
// by schemaFor.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at {{timestamp}} NOT NULL
);
CREATE TABLE IF NOT EXISTS categories (
	id {{serial}},
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS boards (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	category_id {{bigint}} NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	created_at {{timestamp}} NOT NULL
);
CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	created_at {{timestamp}} NOT NULL
);
-- number is unique per thread; the ledger derives it from COUNT(*) and this
-- constraint rejects any race that slips through.
CREATE TABLE IF NOT EXISTS reses (
	id {{serial}},
	thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	number INTEGER NOT NULL,
	who VARCHAR(22) NOT NULL,
	body TEXT NOT NULL,
	inappropriate BOOLEAN NOT NULL DEFAULT {{false}},
	created_at {{timestamp}} NOT NULL,
	UNIQUE (thread_id, number)
);
CREATE TABLE IF NOT EXISTS user_accounts (
	id {{serial}},
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	activated BOOLEAN NOT NULL DEFAULT {{false}},
	role TEXT NOT NULL DEFAULT 'general',
	created_at {{timestamp}} NOT NULL
);
CREATE TABLE IF NOT EXISTS user_profiles (
	account_id {{bigint}} PRIMARY KEY REFERENCES user_accounts(id) ON DELETE CASCADE,
	display_name TEXT NOT NULL DEFAULT '',
	introduction TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS anonymous_authors (
	res_id {{bigint}} PRIMARY KEY REFERENCES reses(id) ON DELETE CASCADE,
	name TEXT,
	email TEXT
);
CREATE TABLE IF NOT EXISTS onymous_authors (
	res_id {{bigint}} PRIMARY KEY REFERENCES reses(id) ON DELETE CASCADE,
	account_id {{bigint}} NOT NULL REFERENCES user_accounts(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS activation_tokens (
	token TEXT PRIMARY KEY,
	account_id {{bigint}} NOT NULL REFERENCES user_accounts(id) ON DELETE CASCADE,
	expires_at {{timestamp}} NOT NULL
);
CREATE TABLE IF NOT EXISTS email_change_tokens (
	token TEXT PRIMARY KEY,
	account_id {{bigint}} NOT NULL REFERENCES user_accounts(id) ON DELETE CASCADE,
	new_email TEXT NOT NULL,
	expires_at {{timestamp}} NOT NULL
);
CREATE TABLE IF NOT EXISTS report_reasons (
	id INTEGER PRIMARY KEY,
	text TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS reports (
	id {{serial}},
	reason_id INTEGER NOT NULL REFERENCES report_reasons(id),
	detail TEXT NOT NULL DEFAULT '',
	res_id {{bigint}} NOT NULL REFERENCES reses(id) ON DELETE CASCADE,
	reported_by {{bigint}} REFERENCES user_accounts(id) ON DELETE SET NULL,
	status TEXT NOT NULL DEFAULT 'open',
	created_at {{timestamp}} NOT NULL
);
CREATE TABLE IF NOT EXISTS favorites (
	account_id {{bigint}} NOT NULL REFERENCES user_accounts(id) ON DELETE CASCADE,
	thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
	created_at {{timestamp}} NOT NULL,
	PRIMARY KEY (account_id, thread_id)
);
CREATE TABLE IF NOT EXISTS mod_actions (
	id {{serial}},
	timestamp {{timestamp}} NOT NULL,
	moderator_id {{bigint}} NOT NULL,
	action TEXT NOT NULL,
	target_id {{bigint}},
	details TEXT NOT NULL DEFAULT ''
);

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_boards_category ON boards(category_id);
CREATE INDEX IF NOT EXISTS idx_threads_board ON threads(board_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_onymous_authors_account ON onymous_authors(account_id);
CREATE INDEX IF NOT EXISTS idx_reports_res_status ON reports(res_id, status);
CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_favorites_account ON favorites(account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_mod_actions_time ON mod_actions(timestamp DESC);
`

var dialects = map[string]*strings.Replacer{
	DriverSQLite: strings.NewReplacer(
		"{{serial}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{bigint}}", "INTEGER",
		"{{timestamp}}", "DATETIME",
		"{{false}}", "0",
	),
	DriverPostgres: strings.NewReplacer(
		"{{serial}}", "BIGSERIAL PRIMARY KEY",
		"{{bigint}}", "BIGINT",
		"{{timestamp}}", "TIMESTAMPTZ",
		"{{false}}", "FALSE",
	),
}

// schemaFor renders the base schema for a driver.
func schemaFor(driver string) string {
	return dialects[driver].Replace(schemaTemplate)
}

// dropOrder lists every table, dependents first.
var dropOrder = []string{
	"mod_actions", "favorites", "reports", "report_reasons",
	"email_change_tokens", "activation_tokens",
	"onymous_authors", "anonymous_authors", "user_profiles", "user_accounts",
	"reses", "threads", "boards", "categories", "schema_migrations",
}

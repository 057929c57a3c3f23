// sixchan/database/migrations.go
package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order. Each query must be valid
// on both SQLite and PostgreSQL.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
INSERT INTO report_reasons (id, text) VALUES
	(1, 'Spam or advertising'),
	(2, 'Harassment or hate speech'),
	(3, 'Personal information'),
	(4, 'Illegal content'),
	(5, 'Other')
ON CONFLICT DO NOTHING;
		`,
	},
	{
		Version: 2,
		Query: `
INSERT INTO categories (name) VALUES ('General') ON CONFLICT DO NOTHING;
		`,
	},
}

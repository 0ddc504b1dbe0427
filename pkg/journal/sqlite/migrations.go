package sqlite

type migration struct {
	version int
	name    string
	sql     []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_exchanges",
		sql: []string{
			`CREATE TABLE IF NOT EXISTS exchanges (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL DEFAULT '',
				subject TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL,
				resource_uri TEXT NOT NULL DEFAULT '',
				prompt TEXT NOT NULL,
				response TEXT NOT NULL DEFAULT '',
				usage_json TEXT,
				status TEXT NOT NULL,
				error_type TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT '',
				duration_ns INTEGER NOT NULL DEFAULT 0,
				created_at_us INTEGER NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at_us DESC, id DESC);`,
			`CREATE INDEX IF NOT EXISTS idx_exchanges_tenant_created ON exchanges(tenant_id, created_at_us DESC, id DESC);`,
		},
	},
}

package sqlite

// schemaStatements create the two-table schema of §4.3: nodes and
// relationships, plus the idempotent indexes. They run in one transaction and
// any failure is fatal; the optional FTS5 virtual table and its sync triggers
// are kept separately in ftsStatements so that a server lacking FTS5 support
// fails only on those, which the caller treats as non-fatal.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		properties TEXT NOT NULL,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		from_id TEXT REFERENCES nodes(id) ON DELETE CASCADE,
		to_id   TEXT REFERENCES nodes(id) ON DELETE CASCADE,
		rel_type TEXT NOT NULL,
		properties TEXT NOT NULL,
		created_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_created_at ON nodes(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_from_id ON relationships(from_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_to_id ON relationships(to_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_type ON relationships(rel_type)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_rel_unique_edge ON relationships(from_id, to_id, rel_type)`,
}

// ftsStatements create the full-text index over (id, title, content, summary)
// and the triggers that keep it synchronized with nodes. These are attempted
// after the core schema and their failure is logged, not fatal: search falls
// back to LIKE-pattern matching over json_extract (§4.4 fuzzy matcher) when
// FTS5 is unavailable.
var ftsStatements = []string{
	`CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
		id UNINDEXED, title, content, summary, content='', tokenize='porter unicode61'
	)`,
	`CREATE TRIGGER IF NOT EXISTS nodes_fts_insert AFTER INSERT ON nodes WHEN new.label = 'Memory' BEGIN
		INSERT INTO nodes_fts(rowid, id, title, content, summary)
		VALUES (new.rowid, new.id,
		        json_extract(new.properties, '$.title'),
		        json_extract(new.properties, '$.content'),
		        json_extract(new.properties, '$.summary'));
	END`,
	`CREATE TRIGGER IF NOT EXISTS nodes_fts_delete AFTER DELETE ON nodes WHEN old.label = 'Memory' BEGIN
		INSERT INTO nodes_fts(nodes_fts, rowid, id, title, content, summary)
		VALUES ('delete', old.rowid, old.id,
		        json_extract(old.properties, '$.title'),
		        json_extract(old.properties, '$.content'),
		        json_extract(old.properties, '$.summary'));
	END`,
	`CREATE TRIGGER IF NOT EXISTS nodes_fts_update AFTER UPDATE ON nodes WHEN new.label = 'Memory' BEGIN
		INSERT INTO nodes_fts(nodes_fts, rowid, id, title, content, summary)
		VALUES ('delete', old.rowid, old.id,
		        json_extract(old.properties, '$.title'),
		        json_extract(old.properties, '$.content'),
		        json_extract(old.properties, '$.summary'));
		INSERT INTO nodes_fts(rowid, id, title, content, summary)
		VALUES (new.rowid, new.id,
		        json_extract(new.properties, '$.title'),
		        json_extract(new.properties, '$.content'),
		        json_extract(new.properties, '$.summary'));
	END`,
}

const memoryLabel = "Memory"

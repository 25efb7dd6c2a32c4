package database

import (
	"context"
	"fmt"
)

// schema 按方言区分的建表语句
func schema(dialect Dialect) []string {
	ts := "TIMESTAMP"
	boolean := "BOOLEAN"
	if dialect == Postgres {
		ts = "TIMESTAMPTZ"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			parent_id TEXT REFERENCES folders(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			deleted_at ` + ts + `,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			folder_id TEXT REFERENCES folders(id) ON DELETE SET NULL,
			path TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			size BIGINT NOT NULL,
			mime_type TEXT,
			checksum TEXT,
			deleted_at ` + ts + `,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS shares (
			id TEXT PRIMARY KEY,
			token TEXT UNIQUE NOT NULL,
			owner_id TEXT NOT NULL,
			file_id TEXT REFERENCES files(id) ON DELETE CASCADE,
			folder_id TEXT REFERENCES folders(id) ON DELETE CASCADE,
			permission TEXT NOT NULL DEFAULT 'view',
			password_hash TEXT,
			expires_at ` + ts + `,
			max_downloads INTEGER,
			download_count INTEGER NOT NULL DEFAULT 0,
			is_active ` + boolean + ` NOT NULL DEFAULT TRUE,
			last_accessed_at ` + ts + `,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL,
			CHECK ((file_id IS NULL) <> (folder_id IS NULL))
		)`,

		// 令牌永不复用，撤销后也保留
		`CREATE TABLE IF NOT EXISTS retired_share_tokens (
			token TEXT PRIMARY KEY,
			retired_at ` + ts + ` NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_files_folder ON files(folder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_files_owner ON files(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_owner ON shares(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_file ON shares(file_id)`,
	}
}

// Migrate 初始化数据库表结构
func (db *DB) Migrate(ctx context.Context) error {
	for _, query := range schema(db.Dialect) {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

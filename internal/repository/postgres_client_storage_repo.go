package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresClientStorageRepo はPostgreSQLを使用したクライアントストレージリポジトリ。
type PostgresClientStorageRepo struct {
	db *sql.DB
}

// NewPostgresClientStorageRepo はPostgresClientStorageRepoを生成する。
func NewPostgresClientStorageRepo(db *sql.DB) *PostgresClientStorageRepo {
	return &PostgresClientStorageRepo{db: db}
}

// Get は指定クライアントのキーの値を取得する。
func (r *PostgresClientStorageRepo) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE client_id = $1 AND key = $2`,
		clientID, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client storage value: %w", err)
	}
	return value, true, nil
}

// Put は値をUPSERTする。
func (r *PostgresClientStorageRepo) Put(ctx context.Context, clientID, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_storage (client_id, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (client_id, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		clientID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to put client storage value: %w", err)
	}
	return nil
}

// Delete はキーを削除する。
func (r *PostgresClientStorageRepo) Delete(ctx context.Context, clientID, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE client_id = $1 AND key = $2`,
		clientID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete client storage value: %w", err)
	}
	return nil
}

// DeleteUpdatedBefore は長期間更新されていないエントリを削除する。
func (r *PostgresClientStorageRepo) DeleteUpdatedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE updated_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale client storage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ClientStorageRepository = (*PostgresClientStorageRepo)(nil)

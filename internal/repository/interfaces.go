// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"
)

// ClientStorageRepository はブラウザクライアントごとの永続キー・バリューストア。
// ローカルお気に入り集合や認証トークンなど、クライアント側の永続状態を保持する。
type ClientStorageRepository interface {
	// Get は指定クライアントのキーの値を取得する。存在しない場合はfound=false。
	Get(ctx context.Context, clientID, key string) (value string, found bool, err error)

	// Put は値を書き込む（既存の値は上書き）。
	Put(ctx context.Context, clientID, key, value string) error

	// Delete はキーを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, clientID, key string) error

	// DeleteUpdatedBefore は指定時刻より前に更新されたエントリを削除し、削除件数を返す。
	DeleteUpdatedBefore(ctx context.Context, before time.Time) (int64, error)
}

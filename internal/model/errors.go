// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, article, backend, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeArticleNotFound  = "ARTICLE_NOT_FOUND"
	ErrCodeFavoriteNotFound = "FAVORITE_NOT_FOUND"
	ErrCodeInvalidArticleID = "INVALID_ARTICLE_ID"
	ErrCodeToggleInFlight   = "TOGGLE_IN_FLIGHT"
	ErrCodeBackendError     = "BACKEND_ERROR"
	ErrCodeBackendTimeout   = "BACKEND_UNREACHABLE"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeLimitReached     = "LIMIT_REACHED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NetworkError はバックエンドへの通信自体が失敗したことを表す。
// タイムアウトもこれに含まれる。再試行はユーザー操作でのみ行う。
type NetworkError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError はバックエンドが2xx以外のステータスを返したことを表す。
type HTTPError struct {
	Status int
	Path   string
	Body   string
}

// Error はerrorインターフェースを実装する。
func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d for %s", e.Status, e.Path)
}

// ValidationError はクライアント側で検出したフォーム入力エラー。
// サーバーには送信されない。
type ValidationError struct {
	Fields map[string]string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// IsUnauthorized はerrが401のHTTPErrorかどうかを判定する。
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized
}

// IsNotFound はerrが404のHTTPErrorかどうかを判定する。
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}

// NewValidationAPIError はフォーム入力エラーを生成する。
func NewValidationAPIError(fields map[string]string) *APIError {
	msg := "入力内容に誤りがあります。"
	if len(fields) > 0 {
		msg = (&ValidationError{Fields: fields}).Error()
	}
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  msg,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError はセッション切れエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "セッションの有効期限が切れました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID int) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %d", articleID),
		Category: "article",
		Action:   "記事IDを確認してください。",
	}
}

// NewFavoriteNotFoundError はお気に入り記事未検出エラーを生成する。
func NewFavoriteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteNotFound,
		Message:  "指定されたお気に入りが見つかりません。",
		Category: "article",
		Action:   "お気に入り一覧を再読み込みしてください。",
	}
}

// NewInvalidArticleIDError は記事IDの形式エラーを生成する。
func NewInvalidArticleIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArticleID,
		Message:  fmt.Sprintf("無効な記事IDです: %s", raw),
		Category: "validation",
		Action:   "記事IDには正の整数を指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディの形式エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストの形式が正しくありません。",
		Category: "validation",
		Action:   "JSON形式で送信してください。",
	}
}

// NewToggleInFlightError は同一記事への操作が処理中であることを示すエラーを生成する。
func NewToggleInFlightError(articleID int) *APIError {
	return &APIError{
		Code:     ErrCodeToggleInFlight,
		Message:  fmt.Sprintf("記事 %d の更新を処理中です。", articleID),
		Category: "article",
		Action:   "処理が完了するまでお待ちください。",
	}
}

// NewBackendError はバックエンドのエラー応答を生成する。
func NewBackendError(status int) *APIError {
	return &APIError{
		Code:     ErrCodeBackendError,
		Message:  fmt.Sprintf("ニュースサーバーがエラーを返しました（ステータス %d）。", status),
		Category: "backend",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewBackendUnreachableError はバックエンドに到達できない場合のエラーを生成する。
func NewBackendUnreachableError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendTimeout,
		Message:  "ニュースサーバーに接続できませんでした。",
		Category: "backend",
		Action:   "接続を確認し、再試行してください。",
	}
}

// NewLimitReachedError はプランの利用上限に達した場合のエラーを生成する。
func NewLimitReachedError(feature Feature) *APIError {
	return &APIError{
		Code:     ErrCodeLimitReached,
		Message:  fmt.Sprintf("現在のプランの上限に達しました: %s", feature),
		Category: "subscription",
		Action:   "プランをアップグレードしてください。",
	}
}

// NewInternalError は分類できないエラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "予期しないエラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// ClassifyError はerrをHTTPステータスとAPIErrorに変換する。
func ClassifyError(err error) (int, *APIError) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadRequest, apiErr
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, NewValidationAPIError(validationErr.Fields)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Status {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, NewUnauthorizedError()
		case http.StatusNotFound:
			return http.StatusNotFound, &APIError{
				Code:     ErrCodeArticleNotFound,
				Message:  "指定されたデータが見つかりません。",
				Category: "article",
				Action:   "一覧を再読み込みしてください。",
			}
		}
		return http.StatusBadGateway, NewBackendError(httpErr.Status)
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return http.StatusGatewayTimeout, NewBackendUnreachableError()
	}

	return http.StatusInternalServerError, NewInternalError()
}

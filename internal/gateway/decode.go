package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/newsdeck/internal/model"
)

// pageEnvelope はバックエンドのページング応答。
// 一部のエンドポイントはresultsではなくdataに配列を入れて返す。
type pageEnvelope[T any] struct {
	Count    *int    `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
	Data     []T     `json:"data"`
}

func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeObject はJSONオブジェクト1つをTに変換する。
func decodeObject[T any](body []byte) (T, error) {
	var v T
	if err := decodeJSON(body, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// decodePage はページング応答または素の配列をPagedResultに正規化する。
// 素の配列は全件が1ページに収まったものとして扱う。
func decodePage[T any](body []byte) (model.PagedResult[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := decodeJSON(trimmed, &items); err != nil {
			return model.PagedResult[T]{}, err
		}
		return model.PagedResult[T]{Items: nonNil(items), TotalCount: len(items)}, nil
	}

	var env pageEnvelope[T]
	if err := decodeJSON(trimmed, &env); err != nil {
		return model.PagedResult[T]{}, err
	}

	items := env.Results
	if items == nil {
		items = env.Data
	}
	items = nonNil(items)

	total := len(items)
	if env.Count != nil {
		total = *env.Count
	}

	return model.PagedResult[T]{
		Items:      items,
		TotalCount: total,
		HasNext:    env.Next != nil && *env.Next != "",
	}, nil
}

// decodeList はresults、data、素の配列のいずれかから一覧を取り出す。
func decodeList[T any](body []byte) ([]T, error) {
	page, err := decodePage[T](body)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

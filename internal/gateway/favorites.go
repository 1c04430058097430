package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/newsdeck/internal/model"
)

const pathFavorites = "/api/auth/favorites/"

// FavoriteArticles はサーバー側のお気に入り記事一覧を取得する。
func (a *API) FavoriteArticles(ctx context.Context) ([]model.FavoriteArticle, error) {
	body, err := a.call(ctx, request{
		endpoint: "favorites",
		method:   http.MethodGet,
		path:     pathFavorites,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[model.FavoriteArticle](body)
}

// AddFavoriteArticle は記事をメモ付きでお気に入りに追加する。
func (a *API) AddFavoriteArticle(ctx context.Context, articleID int, notes string) (model.FavoriteArticle, error) {
	payload := struct {
		Article int    `json:"article"`
		Notes   string `json:"notes,omitempty"`
	}{Article: articleID, Notes: notes}

	body, err := a.call(ctx, request{
		endpoint: "favorite_add",
		method:   http.MethodPost,
		path:     pathFavorites,
		body:     payload,
	})
	if err != nil {
		return model.FavoriteArticle{}, err
	}
	return decodeFavorite(body)
}

// RemoveFavoriteArticle はお気に入りを削除する。idはお気に入り自体のID。
func (a *API) RemoveFavoriteArticle(ctx context.Context, id int) error {
	_, err := a.call(ctx, request{
		endpoint: "favorite_remove",
		method:   http.MethodDelete,
		path:     favoritePath(id),
	})
	return err
}

// UpdateFavoriteArticle はお気に入りのメモを更新する。
func (a *API) UpdateFavoriteArticle(ctx context.Context, id int, notes string) (model.FavoriteArticle, error) {
	body, err := a.call(ctx, request{
		endpoint: "favorite_update",
		method:   http.MethodPatch,
		path:     favoritePath(id),
		body:     map[string]string{"notes": notes},
	})
	if err != nil {
		return model.FavoriteArticle{}, err
	}
	return decodeFavorite(body)
}

// ToggleFavoriteArticle は記事のお気に入り状態を反転する。
func (a *API) ToggleFavoriteArticle(ctx context.Context, articleID int) (model.FavoriteToggleResult, error) {
	body, err := a.call(ctx, request{
		endpoint: "favorite_toggle",
		method:   http.MethodPost,
		path:     "/api/auth/articles/" + strconv.Itoa(articleID) + "/toggle-favorite/",
	})
	if err != nil {
		return model.FavoriteToggleResult{}, err
	}

	var result model.FavoriteToggleResult
	if err := decodeJSON(body, &result); err != nil {
		return model.FavoriteToggleResult{}, err
	}
	return result, nil
}

// CheckFavoriteArticle は記事がお気に入り済みかを確認する。
func (a *API) CheckFavoriteArticle(ctx context.Context, articleID int) (bool, error) {
	var result model.FavoriteToggleResult
	path := "/api/auth/articles/" + strconv.Itoa(articleID) + "/check-favorite/"
	if err := a.getJSON(ctx, "favorite_check", path, &result); err != nil {
		return false, err
	}
	return result.IsFavorite, nil
}

func favoritePath(id int) string {
	return pathFavorites + strconv.Itoa(id) + "/"
}

func decodeFavorite(body []byte) (model.FavoriteArticle, error) {
	var fav model.FavoriteArticle
	if err := decodeJSON(body, &fav); err != nil {
		return model.FavoriteArticle{}, err
	}
	return fav, nil
}

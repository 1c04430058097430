package handler

import (
	"net/http"

	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/subscription"
)

// allFeatures は上限判定の対象となる機能。
var allFeatures = []model.Feature{
	model.FeatureArticles,
	model.FeatureFavorites,
	model.FeatureExports,
	model.FeatureAPI,
}

// SubscriptionHandler はプランと契約のHTTPハンドラー。
type SubscriptionHandler struct {
	workspaces WorkspaceProvider
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(workspaces WorkspaceProvider) *SubscriptionHandler {
	return &SubscriptionHandler{workspaces: workspaces}
}

// limitResponse は機能ごとの上限判定結果。Remainingがnilの場合は無制限または不明。
type limitResponse struct {
	Allowed   bool `json:"allowed"`
	Remaining *int `json:"remaining"`
}

// subscriptionResponse は契約状態のレスポンス。
type subscriptionResponse struct {
	subscription.Snapshot
	Limits map[model.Feature]limitResponse `json:"limits"`
}

// upgradeRequest はアップグレードリクエストのボディ。
type upgradeRequest struct {
	PlanID int `json:"plan_id"`
}

// GetSubscription はプラン一覧・現在の契約・利用状況・上限判定を返す。
// GET /api/subscription
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}

	svc := ws.Subscription()
	if err := svc.Load(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, buildSubscriptionResponse(svc))
}

// Upgrade はプランを変更する。
// POST /api/subscription/upgrade
func (h *SubscriptionHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PlanID <= 0 {
		middleware.WriteError(w, &model.ValidationError{Fields: map[string]string{
			"plan_id": "プランを選択してください",
		}})
		return
	}
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !requireLogin(w, ws) {
		return
	}

	intent, err := ws.Subscription().Upgrade(r.Context(), req.PlanID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, intent)
}

// Cancel は契約を解約する。
// POST /api/subscription/cancel
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFor(w, r, h.workspaces)
	if ws == nil {
		return
	}
	if !requireLogin(w, ws) {
		return
	}

	if err := ws.Subscription().Cancel(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, buildSubscriptionResponse(ws.Subscription()))
}

func buildSubscriptionResponse(svc SubscriptionServiceInterface) subscriptionResponse {
	limits := make(map[model.Feature]limitResponse, len(allFeatures))
	for _, f := range allFeatures {
		limits[f] = limitResponse{
			Allowed:   svc.CheckLimit(f),
			Remaining: svc.RemainingLimit(f),
		}
	}
	return subscriptionResponse{Snapshot: svc.Snapshot(), Limits: limits}
}

// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthInfo は /healthz が返す構成情報です。
type HealthInfo struct {
	Providers []string `json:"providers"`
	// AuthProviders は認証情報を必要とするプロバイダーです。
	AuthProviders []string `json:"auth_providers"`
	Catalog       string   `json:"catalog"`
	Cache         string   `json:"cache"`
}

// healthResponse は /healthz のレスポンスボディです。
type healthResponse struct {
	Status string `json:"status"`
	HealthInfo
}

// NewHealth はサービスヘルスチェック用の /healthz エンドポイントを返します。
// 起動時に構成されたプロバイダーのカスケード順とキャッシュ種別を報告し、キャッシュを防止します。
func NewHealth(info HealthInfo) gin.HandlerFunc {
	if info.Providers == nil {
		info.Providers = []string{}
	}
	if info.AuthProviders == nil {
		info.AuthProviders = []string{}
	}
	body := healthResponse{Status: "ok", HealthInfo: info}

	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		switch c.Request.Method {
		case http.MethodHead:
			c.Status(http.StatusOK)
		case http.MethodOptions:
			c.Status(http.StatusNoContent)
		default:
			c.JSON(http.StatusOK, body)
		}
	}
}

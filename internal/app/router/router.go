package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	bookhandler "shelfscan_backend/internal/feature/bookdetection/transport/handler"
	"shelfscan_backend/internal/platform/http/handler"
	"shelfscan_backend/internal/platform/http/middleware"
	"shelfscan_backend/internal/shared/requestid"
)

// maxMultipartMemory はmultipartフォームをメモリに保持する上限です（画像上限10MB + 余裕分）。
const maxMultipartMemory = 12 << 20

func NewRouter(books *bookhandler.BookHandler, health handler.HealthInfo) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = maxMultipartMemory

	// スマホアプリとWebの両方から呼ばれるためCORSを許可
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, requestid.Header)
	corsCfg.ExposeHeaders = []string{requestid.Header, "Retry-After"}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestID())

	// 導通確認用
	healthz := handler.NewHealth(health)
	r.GET("/healthz", healthz)
	r.HEAD("/healthz", healthz)

	v1 := r.Group("/v1/books")
	{
		// 本棚写真からの書籍検出
		v1.POST("/detect", books.Detect)
		// 書名リストのカタログ照合
		v1.POST("/enrich", books.Enrich)
	}

	return r
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nodap/nodap-server/internal/metrics"
	"github.com/nodap/nodap-server/internal/middleware"
	"github.com/nodap/nodap-server/internal/token"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Codec             *token.Codec
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	AuthService AuthServiceInterface
	UserService UserServiceInterface

	// Cookie設定
	Cookies CookieConfig

	// メトリクス
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer

	// EnableDevLogin はローカル環境でのみtrueにする。
	EnableDevLogin bool
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging →（認証ルートのみ）Auth → RateLimit(General)
//
// ログイン系ルート（/auth/login/*, /auth/reissue）は認証の外に置き、IP単位のレート制限をかける。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.Cookies, deps.Collector)
	userHandler := NewUserHandler(deps.UserService, deps.Cookies, deps.Collector)

	// --- 運用エンドポイント ---

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- 認証不要のルート ---

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.LoginMiddleware())
			r.Post("/login/kakao", authHandler.Login)
			r.Post("/reissue", authHandler.Reissue)
			if deps.EnableDevLogin {
				r.Post("/login/dev", authHandler.DevLogin)
			}
		})

		// ログアウトはトークンが不正でも成功させるため認証もレート制限も通さない
		r.Post("/logout", authHandler.Logout)

		// GET /auth/me は認証必須
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.Codec))
			r.Get("/me", userHandler.Me)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Codec))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/me", userHandler.Me)
			r.Patch("/me", userHandler.Update)
			r.Delete("/me", userHandler.Withdraw)
			r.Get("/check-nickname", userHandler.CheckNickname)
		})
	})

	return r
}

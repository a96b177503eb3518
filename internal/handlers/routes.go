package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Mutating
// catalog routes sit behind the admin key middleware.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	uploads := UploadHandler{Uploads: deps.Uploads, AssetStatus: deps.AssetStatus}
	videos := VideoHandler{Videos: deps.Videos, Categories: deps.Categories, Images: deps.Images}
	personas := PersonaHandler{Personas: deps.Personas, Scenarios: deps.Scenarios}
	chatHandler := ChatHandler{Personas: deps.Personas, Completer: deps.Completer, Limiter: deps.ChatLimiter}
	ttsHandler := TTSHandler{Speech: deps.Speech, Limiter: deps.TTSLimiter}
	sessions := SessionHandler{Sessions: deps.Sessions}
	admin := AdminHandler{Reconciler: deps.Reconciler}

	requireAdmin := AdminKey(deps.AdminKeyHash)

	mux.HandleFunc("/healthz", health.Handle)

	mux.Handle("POST /api/v1/uploads", requireAdmin(http.HandlerFunc(uploads.Create)))
	mux.HandleFunc("GET /api/v1/videos/{uid}/status", uploads.Status)

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.Handle("POST /api/v1/videos", requireAdmin(http.HandlerFunc(videos.Create)))
	mux.HandleFunc("GET /api/v1/categories", videos.ListCategories)
	mux.HandleFunc("GET /api/v1/categories/{id}/videos", videos.ListByCategory)

	mux.HandleFunc("GET /api/v1/personas", personas.List)
	mux.HandleFunc("GET /api/v1/personas/{slug}", personas.Get)
	mux.HandleFunc("GET /api/v1/personas/{id}/scenarios", personas.ListScenarios)

	mux.HandleFunc("POST /api/v1/chat", chatHandler.Handle)
	mux.HandleFunc("POST /api/v1/tts", ttsHandler.Handle)
	mux.HandleFunc("POST /api/v1/sessions", sessions.Register)

	mux.Handle("POST /api/v1/admin/reconcile-durations", requireAdmin(http.HandlerFunc(admin.ReconcileDurations)))
}

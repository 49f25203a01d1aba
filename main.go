package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/booktrack/server/cache"
	"github.com/booktrack/server/config"
	"github.com/booktrack/server/handlers"
	"github.com/booktrack/server/middleware"
	"github.com/booktrack/server/service"
	"github.com/booktrack/server/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal("mongodb indexes:", err)
	}

	var catalogCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, "catalog")
		if err != nil {
			log.Fatal("redis:", err)
		}
		defer redisCache.Close()
		catalogCache = redisCache
	} else {
		log.Println("REDIS_ADDR not set; using in-memory catalog cache")
		catalogCache = cache.NewMemory()
	}

	if cfg.JWKSURL == "" {
		log.Fatal("JWKS_URL is required")
	}
	keyFn, err := middleware.NewIssuerKeyfunc(ctx, cfg.JWKSURL)
	if err != nil {
		log.Fatal("jwks:", err)
	}

	identity := service.NewIdentityService(db)
	library := service.NewLibraryService(db)
	ratings := service.NewRatingService(db)
	catalog := service.NewCatalogService(cfg.CatalogURL, catalogCache, cfg.CatalogCacheTTL, cfg.HTTPClientTimeout)
	recommender := service.NewRecommendClient(cfg.AIServiceURL, cfg.HTTPClientTimeout)
	dashboard := service.NewDashboardService(identity, library, ratings, db, recommender, cfg.HTTPClientTimeout)

	usersHandler := &handlers.UsersHandler{DB: db, Identity: identity}
	booksHandler := &handlers.BooksHandler{DB: db}
	libraryHandler := &handlers.LibraryHandler{Library: library, Identity: identity}
	ratingsHandler := &handlers.RatingsHandler{Ratings: ratings, Identity: identity}
	dashboardHandler := &handlers.DashboardHandler{Dashboard: dashboard}
	catalogHandler := &handlers.CatalogHandler{Catalog: catalog}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(middleware.RequestID())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog/search", catalogHandler.Search)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(keyFn, cfg.TokenIssuers))

			r.Post("/users/sync", usersHandler.Sync)
			r.Get("/users/me", usersHandler.Me)
			r.Get("/users/{id}", usersHandler.Get)

			r.Post("/books", booksHandler.Create)
			r.Get("/books", booksHandler.List)
			r.Get("/books/{id}", booksHandler.Get)
			r.Put("/books/{id}", booksHandler.Update)
			r.Delete("/books/{id}", booksHandler.Delete)

			r.Post("/library", libraryHandler.Add)
			r.Get("/library/users/{userId}", libraryHandler.ListByUser)
			r.Get("/library/users/{userId}/status/{status}", libraryHandler.ListByUserAndStatus)
			r.Get("/library/users/{userId}/stats", libraryHandler.Stats)
			r.Get("/library/{id}", libraryHandler.Get)
			r.Put("/library/{id}/status", libraryHandler.UpdateStatus)
			r.Patch("/library/{id}/status", libraryHandler.UpdateStatus)
			r.Put("/library/{id}/progress", libraryHandler.UpdateProgress)
			r.Patch("/library/{id}/progress", libraryHandler.UpdateProgress)
			r.Get("/library/{id}/progress", libraryHandler.GetProgress)
			r.Delete("/library/{id}", libraryHandler.Delete)

			r.Post("/ratings", ratingsHandler.Rate)
			r.Get("/ratings/users/{userId}", ratingsHandler.ListByUser)
			r.Get("/ratings/users/{userId}/books/{bookId}", ratingsHandler.GetByUserAndBook)
			r.Get("/ratings/books/{bookId}", ratingsHandler.ListByBook)
			r.Get("/ratings/books/{bookId}/stats", ratingsHandler.Stats)
			r.Delete("/ratings/{id}", ratingsHandler.Delete)

			r.Get("/dashboard", dashboardHandler.Overview)
			r.Post("/dashboard/add-book", dashboardHandler.AddBook)
			r.Get("/recommendations", dashboardHandler.Recommendations)
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}

// Command mockapi is a local stand-in for the marketplace API.
//
// Payment status answers are scripted by payment id prefix:
//
//	complete-  PENDING twice, then COMPLETED
//	cancel-    PENDING once, then CANCELLED
//	fail-      FAILED
//	flaky-     500 on the first call, then COMPLETED
//	slow-      answers after a few seconds
//
// Any other id stays PENDING.
package main

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"horsemarket-web/internal/config"
)

const contentType = "application/json"

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type mockAPI struct {
	statusCalls *callCounter

	mu        sync.Mutex
	favorites map[string]bool
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	port := config.GetEnv("MOCKAPI_PORT", "8085")

	m := &mockAPI{statusCalls: newCallCounter(), favorites: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/payments/status/{id}", m.paymentStatus)
	mux.HandleFunc("GET /api/payments/listing-bundles", m.bundles)
	mux.HandleFunc("POST /api/payments/{kind}", m.checkout)
	mux.HandleFunc("GET /api/regions", m.regions)
	mux.HandleFunc("GET /api/listings", m.listings)
	mux.HandleFunc("GET /api/listings/{slug}", m.listing)
	mux.HandleFunc("POST /api/listings", m.createListing)
	mux.HandleFunc("POST /api/listings/{id}/media", m.media)
	mux.HandleFunc("POST /api/auth/login", m.login)
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, nil) })
	mux.HandleFunc("GET /api/auth/me", m.me)
	mux.HandleFunc("GET /api/favorites", m.listFavorites)
	mux.HandleFunc("POST /api/favorites/{id}", m.toggleFavorite(true))
	mux.HandleFunc("DELETE /api/favorites/{id}", m.toggleFavorite(false))
	mux.HandleFunc("GET /api/admin/stats/{kind}", m.stats)
	mux.HandleFunc("GET /api/blog", m.blog)
	mux.HandleFunc("GET /api/blog/{slug}", m.blogPost)
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, []any{}) })
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, []any{}) })

	handler := loggingMiddleware(logger, countMiddleware(logger, newCallCounter(), mux))

	logger.Info("Starting mock API", "port", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logger.Error("Mock API stopped", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: status < 400, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

// scriptedStatus returns the status for the n-th call for id, or "" for a server error.
func scriptedStatus(id string, n int) string {
	switch {
	case strings.HasPrefix(id, "complete-"):
		if n <= 2 {
			return "PENDING"
		}
		return "COMPLETED"
	case strings.HasPrefix(id, "cancel-"):
		if n <= 1 {
			return "PENDING"
		}
		return "CANCELLED"
	case strings.HasPrefix(id, "fail-"):
		return "FAILED"
	case strings.HasPrefix(id, "flaky-"):
		if n <= 1 {
			return ""
		}
		return "COMPLETED"
	case strings.HasPrefix(id, "slow-"):
		return "COMPLETED"
	default:
		return "PENDING"
	}
}

func (m *mockAPI) paymentStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n := m.statusCalls.next(id)

	if strings.HasPrefix(id, "slow-") {
		time.Sleep(time.Duration(3+rand.IntN(6)) * time.Second)
	}

	status := scriptedStatus(id, n)
	if status == "" {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	data := map[string]any{"id": id, "status": status}
	if status == "COMPLETED" {
		data["amount"] = 150000
		data["packageType"] = "OSON_START"
		data["listing"] = map[string]string{"id": "l1", "slug": "black-stallion"}
	}
	writeJSON(w, http.StatusOK, data)
}

func (m *mockAPI) bundles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"bundle5": 50000, "bundle10": 90000, "bundle20": 160000})
}

func (m *mockAPI) checkout(w http.ResponseWriter, r *http.Request) {
	prefixes := []string{"complete-", "cancel-", "fail-", "flaky-", "slow-"}
	id := prefixes[rand.IntN(len(prefixes))] + r.PathValue("kind") + "-" + time.Now().Format("150405.000")
	writeJSON(w, http.StatusOK, map[string]string{
		"paymentId":  id,
		"paymentUrl": "http://localhost:8085/gateway/" + id,
	})
}

func (m *mockAPI) regions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"name": "Toshkent shahri", "districts": []string{"Chilonzor", "Yunusobod"}},
		{"name": "Samarqand", "districts": []string{"Urgut", "Jomboy"}},
	})
}

var sampleListing = map[string]any{
	"id":          "l1",
	"slug":        "black-stallion",
	"title":       "Black stallion",
	"description": "<p>Calm, well trained.</p>",
	"category":    "horses",
	"price":       "25000000",
	"region":      "Samarqand",
	"district":    "Urgut",
	"status":      "ACTIVE",
}

func (m *mockAPI) listings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": []any{sampleListing}, "total": 1, "page": 1})
}

func (m *mockAPI) listing(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("slug") != sampleListing["slug"] {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, sampleListing)
}

func (m *mockAPI) createListing(w http.ResponseWriter, r *http.Request) {
	var draft map[string]any
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	draft["id"] = "l2"
	draft["slug"] = "new-listing"
	draft["status"] = "DRAFT"
	writeJSON(w, http.StatusOK, draft)
}

func (m *mockAPI) media(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form expected")
		return
	}
	urls := []string{}
	for _, f := range r.MultipartForm.File["files"] {
		urls = append(urls, "http://localhost:8085/media/"+f.Filename)
	}
	writeJSON(w, http.StatusOK, urls)
}

var mockUser = map[string]string{"id": "u1", "name": "Rider", "email": "rider@example.com", "role": "ADMIN"}

func (m *mockAPI) login(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "sid", Value: "mock-session", Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"token": "mock-token", "user": mockUser})
}

func (m *mockAPI) me(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, mockUser)
}

func (m *mockAPI) listFavorites(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.favorites))
	for id := range m.favorites {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	writeJSON(w, http.StatusOK, ids)
}

func (m *mockAPI) toggleFavorite(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		if add {
			m.favorites[r.PathValue("id")] = true
		} else {
			delete(m.favorites, r.PathValue("id"))
		}
		m.mu.Unlock()
		writeJSON(w, http.StatusOK, nil)
	}
}

func (m *mockAPI) stats(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("kind") {
	case "users":
		writeJSON(w, http.StatusOK, map[string]int{"total": 120, "newThisWeek": 7})
	case "listings":
		writeJSON(w, http.StatusOK, map[string]int{"total": 80, "active": 64, "pending": 16})
	case "payments":
		writeJSON(w, http.StatusOK, map[string]any{"total": 50, "completed": 41, "revenue": "6150000"})
	default:
		writeError(w, http.StatusNotFound, "unknown stats")
	}
}

var samplePost = map[string]any{
	"slug":        "caring-for-your-horse",
	"title":       "Caring for your horse",
	"excerpt":     "Daily routines that keep horses healthy.",
	"body":        "<p>Groom daily.</p><script>alert('x')</script>",
	"publishedAt": "2024-05-01T10:00:00Z",
}

func (m *mockAPI) blog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []any{samplePost})
}

func (m *mockAPI) blogPost(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("slug") != samplePost["slug"] {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, samplePost)
}

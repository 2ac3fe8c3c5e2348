package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (lrw *loggingResponseWriter) WriteHeader(status int) {
	lrw.status = status
	lrw.ResponseWriter.WriteHeader(status)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	lrw.body.Write(b)
	return lrw.ResponseWriter.Write(b)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var requestBody bytes.Buffer
		body, err := io.ReadAll(io.TeeReader(r.Body, &requestBody))
		if err != nil {
			logger.Error("Error reading request body", "error", err)
		}
		r.Body = io.NopCloser(&requestBody)

		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(lrw, r)

		logger.Info("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"authorization", r.Header.Get("Authorization") != "",
			"requestBody", string(body),
			"status", lrw.status,
			"responseBody", lrw.body.String(),
		)
	})
}

type callCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCallCounter() *callCounter {
	return &callCounter{counts: make(map[string]int)}
}

// next increments and returns the number of calls seen for key.
func (c *callCounter) next(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key]
}

func countMiddleware(logger *slog.Logger, counter *callCounter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := counter.next(r.Method + " " + r.URL.Path)
		logger.Debug("Endpoint called", "method", r.Method, "path", r.URL.Path, "count", count)
		next.ServeHTTP(w, r)
	})
}

package kiosk

import (
	_ "embed"
	"net/http"
)

//go:embed kiosk.html
var page []byte

// PageHandler serves the kiosk page
func PageHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(page)
	})
}

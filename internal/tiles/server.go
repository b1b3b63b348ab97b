package tiles

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Server is a localhost tile proxy the embedded frontend map pulls tiles
// through, so interactive browsing fills the same caches the export
// pipeline reads. URL format: /tiles/{source}/{z}/{x}/{y}
type Server struct {
	client   *Client
	registry *Registry
	url      string
}

// NewServer creates a tile proxy server
func NewServer(client *Client, registry *Registry) *Server {
	return &Server{client: client, registry: registry}
}

// URL returns the base URL once Start has succeeded
func (s *Server) URL() string {
	return s.url
}

// corsMiddleware adds CORS headers; Wails serves the frontend from a
// wails:// origin on macOS and Linux
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start listens on a random localhost port and serves in the background
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/tiles/", s.handleTile)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start tile server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	s.url = fmt.Sprintf("http://127.0.0.1:%d", port)
	log.Printf("[Tiles] Proxy started on %s", s.url)

	server := &http.Server{Handler: corsMiddleware(mux)}
	go func() {
		if err := server.Serve(listener); err != nil {
			log.Printf("[Tiles] Proxy stopped: %v", err)
		}
	}()

	return nil
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tiles/")
	parts := strings.Split(path, "/")
	if len(parts) != 4 {
		http.Error(w, "Invalid URL format. Expected: /tiles/{source}/{z}/{x}/{y}", http.StatusBadRequest)
		return
	}

	src, err := s.registry.Lookup(parts[0])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	z, errZ := strconv.Atoi(parts[1])
	x, errX := strconv.Atoi(parts[2])
	y, errY := strconv.Atoi(strings.TrimSuffix(parts[3], ".png"))
	if errZ != nil || errX != nil || errY != nil {
		http.Error(w, "Invalid tile coordinate", http.StatusBadRequest)
		return
	}
	maxTile := (1 << z) - 1
	if z < 0 || x < 0 || x > maxTile || y < 0 || y > maxTile {
		http.Error(w, "Tile coordinate out of range", http.StatusBadRequest)
		return
	}

	data, err := s.client.FetchTileBytes(r.Context(), src, z, x, y)
	if err != nil {
		log.Printf("[Tiles] Proxy fetch failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

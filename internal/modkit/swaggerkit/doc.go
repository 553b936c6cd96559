package swaggerkit

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"msgstats/internal/core/version"

	"github.com/goccy/go-json"
)

// Op describes one documented endpoint
type Op struct {
	Method  string
	Path    string
	Summary string
	Tag     string
}

var (
	mu  sync.Mutex
	ops []Op
)

// Register adds endpoints to the served document; modules call it when mounting
func Register(o ...Op) {
	mu.Lock()
	ops = append(ops, o...)
	mu.Unlock()
}

// Document builds the OpenAPI 3 document from registered ops
func Document() map[string]any {
	mu.Lock()
	cp := append([]Op(nil), ops...)
	mu.Unlock()
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].Path != cp[j].Path {
			return cp[i].Path < cp[j].Path
		}
		return cp[i].Method < cp[j].Method
	})

	paths := map[string]any{}
	for _, o := range cp {
		item, _ := paths[o.Path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[o.Path] = item
		}
		item[strings.ToLower(o.Method)] = map[string]any{
			"summary":   o.Summary,
			"tags":      []string{o.Tag},
			"responses": map[string]any{"default": map[string]any{"description": "standard envelope"}},
		}
	}
	return map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": version.Service, "version": version.Info().Version},
		"paths":   paths,
	}
}

func serveDocJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(Document())
}

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeServer is one server held by fakeHetzner
type fakeServer struct {
	ID         int64
	Name       string
	IP         string
	ServerType string
	Image      string
	Location   string
}

// fakeHetzner serves the subset of the Hetzner Cloud API revive uses
type fakeHetzner struct {
	mu      sync.Mutex
	servers map[int64]*fakeServer
	nextID  int64
	nextIP  string
	deleted []int64
	created []string

	server *httptest.Server
}

func newFakeHetzner(t *testing.T) *fakeHetzner {
	t.Helper()

	f := &fakeHetzner{
		servers: make(map[int64]*fakeServer),
		nextID:  100,
		nextIP:  "127.0.0.1",
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the API endpoint to put in the provider config
func (f *fakeHetzner) URL() string {
	return f.server.URL
}

func (f *fakeHetzner) add(s fakeServer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers[s.ID] = &s
}

func (f *fakeHetzner) deletedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.deleted...)
}

func (f *fakeHetzner) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && parts[0] == "servers" && r.Method == http.MethodPost:
		f.create(w, r)
	case len(parts) == 2 && parts[0] == "servers":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			hcloudError(w, http.StatusBadRequest, "invalid_input", "invalid id")
			return
		}
		s, ok := f.servers[id]
		if !ok {
			hcloudError(w, http.StatusNotFound, "not_found", fmt.Sprintf("server %d not found", id))
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"server": serverJSON(s)})
		case http.MethodDelete:
			delete(f.servers, id)
			f.deleted = append(f.deleted, id)
			writeJSON(w, http.StatusOK, map[string]any{"action": actionJSON(id, "delete_server")})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		hcloudError(w, http.StatusNotFound, "not_found", "no such endpoint")
	}
}

func (f *fakeHetzner) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		ServerType string `json:"server_type"`
		Image      string `json:"image"`
		Location   string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hcloudError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	f.nextID++
	s := &fakeServer{
		ID:         f.nextID,
		Name:       req.Name,
		IP:         f.nextIP,
		ServerType: req.ServerType,
		Image:      req.Image,
		Location:   req.Location,
	}
	f.servers[s.ID] = s
	f.created = append(f.created, req.Name)

	writeJSON(w, http.StatusCreated, map[string]any{
		"server":        serverJSON(s),
		"action":        actionJSON(s.ID, "create_server"),
		"next_actions":  []any{},
		"root_password": "hunter2",
	})
}

func serverJSON(s *fakeServer) map[string]any {
	return map[string]any{
		"id":      s.ID,
		"name":    s.Name,
		"status":  "running",
		"created": time.Now().UTC().Format(time.RFC3339),
		"public_net": map[string]any{
			"ipv4": map[string]any{"ip": s.IP, "blocked": false},
			"ipv6": map[string]any{"ip": "2001:db8::/64", "blocked": false},
		},
		"server_type": map[string]any{"id": 1, "name": s.ServerType},
		"image":       map[string]any{"id": 1, "name": s.Image, "type": "system"},
		"datacenter": map[string]any{
			"id":       1,
			"name":     s.Location + "-dc3",
			"location": map[string]any{"id": 1, "name": s.Location},
		},
	}
}

func actionJSON(resourceID int64, command string) map[string]any {
	now := time.Now().UTC().Format(time.RFC3339)
	return map[string]any{
		"id":        resourceID * 10,
		"command":   command,
		"status":    "success",
		"progress":  100,
		"started":   now,
		"finished":  now,
		"resources": []map[string]any{{"id": resourceID, "type": "server"}},
	}
}

func hcloudError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

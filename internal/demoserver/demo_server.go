package demoserver

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"sync"
)

// DemoServer serves a handful of pages whose security headers can be
// switched between profiles on the fly.
type DemoServer struct {
	cfg      Config
	pages    map[string]PageDefinition
	profiles map[string]string // path -> current profile
	mu       sync.RWMutex
	tmpl     *template.Template
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config) *DemoServer {
	if !knownProfile(cfg.InitialProfile) {
		cfg.InitialProfile = ProfileInsecure
	}
	pageMap := make(map[string]PageDefinition)
	profiles := make(map[string]string)
	for _, p := range GetAllPages() {
		pageMap[p.Path] = p
		profiles[p.Path] = cfg.InitialProfile
	}

	return &DemoServer{
		cfg:      cfg,
		pages:    pageMap,
		profiles: profiles,
		tmpl:     template.Must(template.New("control").Parse(controlPanelHTML)),
	}
}

func knownProfile(name string) bool {
	for _, p := range Profiles {
		if p == name {
			return true
		}
	}
	return false
}

// Handler returns the demo site and its control endpoints.
func (s *DemoServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for path := range s.pages {
		mux.HandleFunc(path, s.pageHandler(path))
	}

	mux.HandleFunc("/demo/control", s.controlPanelHandler)
	mux.HandleFunc("/demo/set-profile", s.setProfileHandler)
	mux.HandleFunc("/demo/profiles", s.getProfilesHandler)
	mux.HandleFunc("/demo/set-all", s.setAllHandler)

	mux.HandleFunc("/static/", s.staticHandler)
	return mux
}

// Start serves the pages on cfg.Addr until the listener fails.
func (s *DemoServer) Start() error {
	addr := s.cfg.Addr()
	fmt.Printf("Demo server starting on http://%s (profile %s)\n", addr, s.cfg.InitialProfile)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *DemoServer) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// "/" is a catch-all in ServeMux
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		s.mu.RLock()
		pageDef := s.pages[path]
		prof := pageDef.Profiles[s.profiles[path]]
		s.mu.RUnlock()

		h := w.Header()
		for _, f := range prof.Headers {
			h.Add(f.Name, f.Value)
		}
		for _, c := range prof.RawCookies {
			h.Add("Set-Cookie", c)
		}
		if prof.ReflectOrigin {
			if origin := r.Header.Get("Origin"); origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
			}
		}
		if prof.ContentType != "" {
			h.Set("Content-Type", prof.ContentType)
		}

		status := prof.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(prof.Body))
	}
}

// staticHandler serves placeholder static files.
func (s *DemoServer) staticHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write([]byte(`// Demo static file: ` + r.URL.Path + "\n"))
}

type pageInfo struct {
	Path           string   `json:"path"`
	Description    string   `json:"description"`
	CurrentProfile string   `json:"current_profile"`
	Profiles       []string `json:"profiles"`
}

func (s *DemoServer) pageInfos() []pageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]pageInfo, 0, len(s.pages))
	for path, p := range s.pages {
		infos = append(infos, pageInfo{
			Path:           path,
			Description:    p.Description,
			CurrentProfile: s.profiles[path],
			Profiles:       Profiles,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}

func (s *DemoServer) controlPanelHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = s.tmpl.Execute(w, s.pageInfos())
}

func (s *DemoServer) getProfilesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pageInfos())
}

// setProfileHandler switches one page: POST path=/login&profile=secure.
func (s *DemoServer) setProfileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path, profile := r.FormValue("path"), r.FormValue("profile")
	if !knownProfile(profile) {
		http.Error(w, "Unknown profile", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	_, ok := s.pages[path]
	if ok {
		s.profiles[path] = profile
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Unknown page", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "path": path, "profile": profile})
}

// setAllHandler switches every page: POST profile=secure.
func (s *DemoServer) setAllHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	profile := r.FormValue("profile")
	if !knownProfile(profile) {
		http.Error(w, "Unknown profile", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	for path := range s.profiles {
		s.profiles[path] = profile
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "profile": profile})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const controlPanelHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Demo Server Control Panel</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; }
        .page-card { border: 1px solid #ddd; border-radius: 6px; padding: 12px 16px; margin: 12px 0; }
        .current { font-weight: bold; color: #28a745; }
        button.active { background: #007bff; color: white; }
    </style>
</head>
<body>
    <h1>Demo Server Control Panel</h1>
    <p>Switch header profiles, then rescan the pages to compare results.</p>
    <p>
        <button onclick="setAll('insecure')">All insecure</button>
        <button onclick="setAll('partial')">All partial</button>
        <button onclick="setAll('secure')">All secure</button>
    </p>
    {{range .}}
    {{$page := .}}
    <div class="page-card">
        <a href="{{.Path}}" target="_blank">{{.Path}}</a>
        <span class="current">{{.CurrentProfile}}</span>
        <div>{{.Description}}</div>
        <div>
            {{range .Profiles}}
            <button class="{{if eq . $page.CurrentProfile}}active{{end}}"
                    onclick="setProfile('{{$page.Path}}', '{{.}}')">{{.}}</button>
            {{end}}
        </div>
    </div>
    {{end}}
    <script>
        function post(url, body) {
            return fetch(url, {
                method: 'POST',
                headers: {'Content-Type': 'application/x-www-form-urlencoded'},
                body: body
            }).then(function () { location.reload(); });
        }
        function setProfile(path, profile) {
            post('/demo/set-profile', 'path=' + encodeURIComponent(path) + '&profile=' + profile);
        }
        function setAll(profile) {
            post('/demo/set-all', 'profile=' + profile);
        }
    </script>
</body>
</html>`

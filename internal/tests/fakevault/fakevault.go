// Package fakevault is an in-memory stand-in for the Vault HTTP API, covering
// the sys endpoints, the approle and userpass logins, and K/V reads and
// writes.
package fakevault

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Fixture credentials accepted by the fake auth endpoints.
const (
	RootToken = "hvs.fake-root"

	RoleID        = "fake-role-id"
	SecretID      = "fake-secret-id"
	AppRoleToken  = "hvs.fake-approle"
	Username      = "fakeuser"
	Password      = "fakepass"
	UserPassToken = "hvs.fake-userpass"
	GitHubPAT     = "ghp_fake"
	GitHubToken   = "hvs.fake-github"

	Version     = "1.15.0"
	ClusterName = "vault-cluster-fake"
	ClusterID   = "8d3e4a21-fake-cluster"
)

// Request is a record of one request received by the fake.
type Request struct {
	Method   string
	Path     string
	RawPath  string
	RawQuery string
	Header   http.Header
	Body     map[string]any
}

type mount struct {
	Type    string            `json:"type"`
	Options map[string]string `json:"options"`
}

// Vault is a fake Vault server.
type Vault struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	requests    []Request
	initialized bool
	sealed      bool
	shares      int
	threshold   int
	progress    int
	keys        [][]byte
	tokens      map[string]bool
	mounts      map[string]mount
	secrets     map[string]map[string]any
	versions    map[string]int
}

// Server starts an uninitialized, sealed fake Vault. It is shut down when
// the test completes.
func Server(t *testing.T) *Vault {
	t.Helper()

	v := &Vault{
		t:        t,
		sealed:   true,
		tokens:   map[string]bool{},
		mounts:   map[string]mount{},
		secrets:  map[string]map[string]any{},
		versions: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sys/seal-status", v.sealStatus)
	mux.HandleFunc("GET /v1/sys/init", v.initStatus)
	mux.HandleFunc("GET /v1/sys/mounts", v.listMounts)
	mux.HandleFunc("DELETE /v1/sys/mounts/{path...}", v.disableMount)

	// Vault treats PUT and POST alike; vault/api logins use PUT
	for _, method := range []string{http.MethodPost, http.MethodPut} {
		mux.HandleFunc(method+" /v1/sys/init", v.init)
		mux.HandleFunc(method+" /v1/sys/unseal", v.unseal)
		mux.HandleFunc(method+" /v1/sys/seal", v.seal)
		mux.HandleFunc(method+" /v1/sys/mounts/{path...}", v.enableMount)
		mux.HandleFunc(method+" /v1/auth/{mount}/login", v.mountLogin)
		mux.HandleFunc(method+" /v1/auth/{mount}/login/{username}", v.userPassLogin)
	}
	mux.HandleFunc("/", v.logical)

	v.srv = httptest.NewServer(v.record(mux))
	t.Cleanup(v.srv.Close)

	return v
}

// Unsealed starts a fake Vault that is already initialized and unsealed,
// with RootToken valid and a K/V version 2 engine mounted at "secret/".
func Unsealed(t *testing.T) *Vault {
	t.Helper()

	v := Server(t)

	v.mu.Lock()
	defer v.mu.Unlock()

	v.initialized = true
	v.sealed = false
	v.shares, v.threshold = 1, 1
	v.keys = [][]byte{[]byte("fake-unseal-key-0")}
	v.tokens[RootToken] = true
	v.mounts["secret/"] = mount{Type: "kv", Options: map[string]string{"version": "2"}}

	return v
}

// URL returns the base address of the fake.
func (v *Vault) URL() string {
	return v.srv.URL
}

// Requests returns every request received so far.
func (v *Vault) Requests() []Request {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]Request(nil), v.requests...)
}

// LastRequest returns the most recent request. It fails the test if there
// were none.
func (v *Vault) LastRequest() Request {
	v.t.Helper()

	reqs := v.Requests()
	if len(reqs) == 0 {
		v.t.Fatal("fakevault: no requests received")
	}

	return reqs[len(reqs)-1]
}

// Sealed reports whether the fake is sealed.
func (v *Vault) Sealed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.sealed
}

// Secret returns the raw data last written to the logical path p (no "/v1"
// prefix).
func (v *Vault) Secret(p string) (map[string]any, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s, ok := v.secrets[strings.Trim(p, "/")]

	return s, ok
}

func (v *Vault) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}

		if r.Body != nil {
			dec := json.NewDecoder(r.Body)
			_ = dec.Decode(&body)

			r.Body.Close()
		}

		v.mu.Lock()
		v.requests = append(v.requests, Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawPath:  r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		v.mu.Unlock()

		r = r.WithContext(withBody(r.Context(), body))

		next.ServeHTTP(w, r)
	})
}

type bodyKey struct{}

func withBody(ctx context.Context, body map[string]any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

// bodyFrom returns the decoded JSON request body, or an empty map.
func bodyFrom(ctx context.Context) map[string]any {
	if b, ok := ctx.Value(bodyKey{}).(map[string]any); ok {
		return b
	}

	return map[string]any{}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, code int, errs ...string) {
	if errs == nil {
		errs = []string{}
	}

	writeJSON(w, code, map[string]any{"errors": errs})
}

func (v *Vault) sealStatus(w http.ResponseWriter, _ *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	resp := map[string]any{
		"type":          "shamir",
		"initialized":   v.initialized,
		"sealed":        v.sealed,
		"t":             v.threshold,
		"n":             v.shares,
		"progress":      v.progress,
		"nonce":         "",
		"version":       Version,
		"build_date":    "2023-09-22T21:29:05Z",
		"migration":     false,
		"recovery_seal": false,
		"storage_type":  "inmem",
		// not part of the declared shape - clients must tolerate extras
		"removed_from_cluster": false,
	}

	if !v.sealed {
		resp["cluster_name"] = ClusterName
		resp["cluster_id"] = ClusterID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (v *Vault) initStatus(w http.ResponseWriter, _ *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"initialized": v.initialized})
}

func (v *Vault) init(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		writeErrors(w, http.StatusBadRequest, "Vault is already initialized")

		return
	}

	shares, _ := body["secret_shares"].(float64)
	threshold, _ := body["secret_threshold"].(float64)

	if shares < 1 || threshold < 1 || threshold > shares {
		writeErrors(w, http.StatusBadRequest, "invalid seal configuration")

		return
	}

	v.initialized = true
	v.shares, v.threshold = int(shares), int(threshold)
	v.keys = make([][]byte, v.shares)

	keys := make([]string, v.shares)
	keysB64 := make([]string, v.shares)

	for i := range v.keys {
		v.keys[i] = []byte(fmt.Sprintf("fake-unseal-key-%d", i))
		keys[i] = hex.EncodeToString(v.keys[i])
		keysB64[i] = base64.StdEncoding.EncodeToString(v.keys[i])
	}

	v.tokens[RootToken] = true

	writeJSON(w, http.StatusOK, map[string]any{
		"keys":        keys,
		"keys_base64": keysB64,
		"root_token":  RootToken,
	})
}

func (v *Vault) unseal(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		writeErrors(w, http.StatusBadRequest, "Vault is not initialized")

		return
	}

	if reset, _ := body["reset"].(bool); reset {
		v.progress = 0
	} else {
		key, _ := body["key"].(string)
		if !v.validKey(key) {
			writeErrors(w, http.StatusBadRequest, "invalid key")

			return
		}

		if v.sealed {
			v.progress++
		}

		if v.progress >= v.threshold {
			v.sealed = false
			v.progress = 0
		}
	}

	resp := map[string]any{
		"sealed":   v.sealed,
		"t":        v.threshold,
		"n":        v.shares,
		"progress": v.progress,
		"version":  Version,
	}

	if !v.sealed {
		resp["cluster_name"] = ClusterName
		resp["cluster_id"] = ClusterID
	}

	writeJSON(w, http.StatusOK, resp)
}

// validKey accepts hex or base64 encodings of any unseal key
func (v *Vault) validKey(key string) bool {
	for _, k := range v.keys {
		if key == hex.EncodeToString(k) || key == base64.StdEncoding.EncodeToString(k) {
			return true
		}
	}

	return false
}

func (v *Vault) authorized(r *http.Request) bool {
	return v.tokens[r.Header.Get("X-Vault-Token")]
}

func (v *Vault) seal(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.authorized(r) {
		writeErrors(w, http.StatusForbidden, "permission denied")

		return
	}

	v.sealed = true
	w.WriteHeader(http.StatusNoContent)
}

func (v *Vault) listMounts(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.authorized(r) {
		writeErrors(w, http.StatusForbidden, "permission denied")

		return
	}

	mounts := map[string]any{}
	for p, m := range v.mounts {
		mounts[p] = m
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": mounts})
}

func (v *Vault) enableMount(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.authorized(r) {
		writeErrors(w, http.StatusForbidden, "permission denied")

		return
	}

	p := strings.Trim(r.PathValue("path"), "/") + "/"
	if _, ok := v.mounts[p]; ok {
		writeErrors(w, http.StatusBadRequest, fmt.Sprintf("path is already in use at %s", p))

		return
	}

	m := mount{Options: map[string]string{}}
	m.Type, _ = body["type"].(string)

	if opts, ok := body["options"].(map[string]any); ok {
		for k, o := range opts {
			m.Options[k] = fmt.Sprint(o)
		}
	}

	v.mounts[p] = m

	w.WriteHeader(http.StatusNoContent)
}

func (v *Vault) disableMount(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.authorized(r) {
		writeErrors(w, http.StatusForbidden, "permission denied")

		return
	}

	delete(v.mounts, strings.Trim(r.PathValue("path"), "/")+"/")

	w.WriteHeader(http.StatusNoContent)
}

func (v *Vault) login(w http.ResponseWriter, token string) {
	v.mu.Lock()
	v.tokens[token] = true
	v.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"auth": map[string]any{
			"client_token":   token,
			"policies":       []string{"default"},
			"lease_duration": 3600,
			"renewable":      true,
		},
	})
}

// mountLogin serves approle and github logins, on any mount path. The
// method is told apart by the body.
func (v *Vault) mountLogin(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())

	switch {
	case body["role_id"] != nil:
		if body["role_id"] != RoleID || body["secret_id"] != SecretID {
			writeErrors(w, http.StatusBadRequest, "invalid role or secret ID")

			return
		}

		v.login(w, AppRoleToken)
	case body["token"] != nil:
		if body["token"] != GitHubPAT {
			writeErrors(w, http.StatusBadRequest, "invalid github token")

			return
		}

		v.login(w, GitHubToken)
	default:
		writeErrors(w, http.StatusBadRequest, "missing credentials")
	}
}

func (v *Vault) userPassLogin(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())

	if r.PathValue("username") != Username || body["password"] != Password {
		writeErrors(w, http.StatusBadRequest, "invalid username or password")

		return
	}

	v.login(w, UserPassToken)
}

// logical serves reads, writes and deletes of secrets on any mount. Paths on
// a K/V version 2 mount must include the "data/" segment.
func (v *Vault) logical(w http.ResponseWriter, r *http.Request) {
	p, ok := strings.CutPrefix(r.URL.Path, "/v1/")
	if !ok {
		writeErrors(w, http.StatusNotFound)

		return
	}

	p = strings.Trim(p, "/")

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sealed {
		writeErrors(w, http.StatusServiceUnavailable, "Vault is sealed")

		return
	}

	if !v.authorized(r) {
		writeErrors(w, http.StatusForbidden, "permission denied")

		return
	}

	kv2 := v.isKV2(p)

	switch r.Method {
	case http.MethodGet:
		s, ok := v.secrets[p]
		if !ok {
			writeErrors(w, http.StatusNotFound)

			return
		}

		if kv2 {
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"data":     s["data"],
				"metadata": v.metadata(p),
			}})

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"data":           s,
			"lease_duration": 2764800,
			"renewable":      false,
		})
	case http.MethodPost, http.MethodPut:
		body := bodyFrom(r.Context())
		v.secrets[p] = body

		if kv2 {
			v.versions[p]++

			writeJSON(w, http.StatusOK, map[string]any{"data": v.metadata(p)})

			return
		}

		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		delete(v.secrets, p)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeErrors(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (v *Vault) metadata(p string) map[string]any {
	return map[string]any{
		"version":       v.versions[p],
		"created_time":  "2024-01-01T00:00:00Z",
		"deletion_time": "",
		"destroyed":     false,
	}
}

func (v *Vault) isKV2(p string) bool {
	parts := strings.SplitN(p, "/", 3)
	if len(parts) < 3 || parts[1] != "data" {
		return false
	}

	m, ok := v.mounts[parts[0]+"/"]

	return ok && m.Type == "kv" && m.Options["version"] == "2"
}

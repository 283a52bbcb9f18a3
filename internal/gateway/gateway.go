// Package gateway implements the orchestrator's HTTP front door: it proxies
// /function/{id}[/...] requests to a running function's trigger port, and
// serves the ephemeral key-value store at /storage/{key}.
package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ankitkpandey1/aetherless/internal/config"
	"github.com/ankitkpandey1/aetherless/internal/pool"
	"github.com/ankitkpandey1/aetherless/internal/storage"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

// Gateway routes inbound HTTP requests to function instances or the
// storage service.
type Gateway struct {
	controller *pool.Controller
	store      *storage.Store
	log        *logrus.Logger
}

// New creates a Gateway bound to a pool controller and storage instance.
func New(controller *pool.Controller, store *storage.Store, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gateway{controller: controller, store: store, log: logger}
}

// Handler returns the gateway's top-level http.Handler.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/function/", g.handleFunction)
	mux.HandleFunc("/storage/", g.handleStorage)
	mux.HandleFunc("/admin/functions", g.handleAdminDeploy)
	mux.HandleFunc("/healthz", g.handleHealthz)
	return mux
}

// handleAdminDeploy registers a new function against the running
// orchestrator's registry from a posted YAML/JSON function definition.
func (g *Gateway) handleAdminDeploy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	fn, err := config.ValidateFunctionDocument(body)
	if err != nil {
		http.Error(w, "invalid function definition: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := g.controller.Register(fn); err != nil {
		http.Error(w, "registration failed: "+err.Error(), http.StatusConflict)
		return
	}

	resp, _ := json.Marshal(map[string]string{"id": fn.ID.String(), "status": "registered"})
	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleFunction proxies /function/{id}[/subpath] to the function's
// trigger port on localhost. It returns 404 for an unregistered id and 503
// for a registered id whose state machine does not currently admit
// invocation (Uninitialized or Suspended); it does not itself spawn or
// restore the function.
func (g *Gateway) handleFunction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/function/")
	if rest == "" {
		http.Error(w, "missing function id", http.StatusBadRequest)
		return
	}

	idPart, subPath, _ := strings.Cut(rest, "/")
	id, err := values.NewFunctionId(idPart)
	if err != nil {
		http.Error(w, "invalid function id: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := g.controller.GetConfig(id)
	if err != nil {
		http.Error(w, "unknown function: "+idPart, http.StatusNotFound)
		return
	}

	state, err := g.controller.GetState(id)
	if err != nil || !state.IsInvokable() {
		http.Error(w, "function not invokable: "+idPart, http.StatusServiceUnavailable)
		return
	}

	target := &url.URL{
		Scheme: "http",
		Host:   "127.0.0.1:" + strconv.FormatUint(uint64(cfg.TriggerPort.Value()), 10),
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.log.WithField("function_id", idPart).WithError(err).Warn("proxy request failed")
		http.Error(w, "function unreachable", http.StatusBadGateway)
	}

	r.URL.Path = "/" + subPath
	proxy.ServeHTTP(w, r)
}

func (g *Gateway) handleStorage(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/storage/")
	if key == "" {
		http.Error(w, "missing storage key", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		value, err := g.store.Get(key)
		if err != nil {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		w.Write(value)

	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		g.store.Put(key, body)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		g.store.Delete(key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

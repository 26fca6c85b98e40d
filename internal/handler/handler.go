package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"fsanano/item-catalog/internal/model"
	"fsanano/item-catalog/internal/service"
	"fsanano/item-catalog/internal/session"
)

// Dependencies aggregates what the handlers need.
type Dependencies struct {
	Catalog  *service.CatalogService
	Sessions *session.Store
	Auth     *session.Manager
	// ConnectRoutes maps a route prefix to the name of a provider registered
	// with Auth. Logins posted to /{prefix}connect are completed by it.
	ConnectRoutes map[string]string
	Logger        *zap.Logger
}

type Handler struct {
	router    *chi.Mux
	catalog   *service.CatalogService
	sessions  *session.Store
	auth      *session.Manager
	providers map[string]session.IdentityProvider
	logger    *zap.Logger
}

func NewHandler(deps Dependencies) *Handler {
	router := chi.NewRouter()

	compressor := middleware.NewCompressor(5, "text/html", "text/plain", "application/json")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(deps.Sessions.Middleware)
	router.Use(RequestLogger(deps.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(compressor.Handler)

	h := &Handler{
		router:    router,
		catalog:   deps.Catalog,
		sessions:  deps.Sessions,
		auth:      deps.Auth,
		providers: make(map[string]session.IdentityProvider, len(deps.ConnectRoutes)),
		logger:    deps.Logger,
	}
	for prefix, name := range deps.ConnectRoutes {
		p, ok := deps.Auth.Provider(name)
		if !ok {
			deps.Logger.Warn("no provider registered for connect route",
				zap.String("route", "/"+prefix+"connect"),
				zap.String("provider", name),
			)
			continue
		}
		h.providers[prefix] = p
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.router.Get("/health", h.HealthCheck)

	h.router.Get("/", h.ShowCatalog)
	h.router.Get("/login", h.ShowLogin)
	h.router.Get("/disconnect", h.Disconnect)
	for prefix, p := range h.providers {
		h.router.Post("/"+prefix+"connect", h.Connect(p))
	}

	h.router.Route("/category", func(r chi.Router) {
		r.Get("/", h.ShowCatalog)
		r.Get("/json", h.CatalogJSON)

		r.Get("/new", h.NewItemForm)
		r.Post("/new", h.CreateItem)
		r.Get("/new/{catId}", h.NewItemForm)
		r.Post("/new/{catId}", h.CreateItem)

		r.Route("/{catId}", func(r chi.Router) {
			r.Get("/", h.ShowCategory)
			r.Get("/json", h.CategoryJSON)

			r.Route("/{itemId}", func(r chi.Router) {
				r.Get("/", h.ShowItem)
				r.Get("/json", h.ItemJSON)
				r.Get("/edit", h.EditItemForm)
				r.Post("/edit", h.UpdateItem)
				r.Get("/delete", h.DeleteItemForm)
				r.Post("/delete", h.DeleteItem)
			})
		})
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// loginOptions lists the configured providers in a stable order.
func (h *Handler) loginOptions() []loginOption {
	out := make([]loginOption, 0, len(h.providers))
	for prefix, p := range h.providers {
		out = append(out, loginOption{Prefix: prefix, Name: p.Name(), ClientID: p.ClientID()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

// render writes a full page. A pending flash message is shown and consumed.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	sess := session.FromContext(r.Context())
	v.User = sess
	if v.Flash = sess.PopFlash(); v.Flash != "" {
		h.saveSession(w, r, sess)
	}

	h.execute(w, r, status, pages[page], "layout", v)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("failed to render template",
			zap.String("template", name),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := h.sessions.Save(w, sess); err != nil {
		h.logger.Error("failed to save session",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

// redirect stores an optional flash message and sends the client to url.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url, flash string) {
	if flash != "" {
		sess := session.FromContext(r.Context())
		sess.Flash = flash
		h.saveSession(w, r, sess)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// fail maps service errors onto responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, model.ErrForbidden):
		http.Redirect(w, r, "/category", http.StatusSeeOther)
	case errors.Is(err, model.ErrNotFound):
		http.NotFound(w, r)
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// pathID reads a positive integer route parameter.
func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}

// itemPath reads the category and item ids of /category/{catId}/{itemId}.
func itemPath(r *http.Request) (int64, int64, bool) {
	catID, ok := pathID(r, "catId")
	if !ok {
		return 0, 0, false
	}
	itemID, ok := pathID(r, "itemId")
	return catID, itemID, ok
}

func itemURL(item model.Item) string {
	return "/category/" + strconv.FormatInt(item.CategoryID, 10) + "/" + strconv.FormatInt(item.ID, 10)
}

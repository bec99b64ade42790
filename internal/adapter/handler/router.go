package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/metrics"
)

func NewRouter(h *HTTPHandler, pages *Pages, m *metrics.Metrics, gatherer prometheus.Gatherer, logger logging.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", pages.Login).Methods(http.MethodGet)
	r.HandleFunc("/inventory/", pages.Dashboard).Methods(http.MethodGet)
	r.Handle("/inventory", http.RedirectHandler("/inventory/", http.StatusMovedPermanently)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/signup", h.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/signin", h.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/inventory", h.ListInventory).Methods(http.MethodGet)
	api.HandleFunc("/inventory", h.CreateItem).Methods(http.MethodPost)
	api.HandleFunc("/inventory/{id}", h.UpdateItem).Methods(http.MethodPut)
	api.HandleFunc("/inventory/{id}", h.DeleteItem).Methods(http.MethodDelete)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.Use(requestLogger(logger), instrument(m))

	// mux skips middleware for unmatched requests, so wrap the fallbacks.
	unmatched := func(next http.Handler) http.Handler {
		return requestLogger(logger)(instrument(m)(next))
	}
	r.NotFoundHandler = unmatched(http.NotFoundHandler())
	r.MethodNotAllowedHandler = unmatched(http.HandlerFunc(methodNotAllowed))

	return cors(r)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

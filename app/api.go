package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asitisdev/noticewatch/config"
	"github.com/asitisdev/noticewatch/lib"
	"github.com/asitisdev/noticewatch/lib/models"
	"github.com/asitisdev/noticewatch/lib/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service) http.Handler {
	ctrl := &controller{log, svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api/webhook", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))

		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Allow", "GET, POST, DELETE, OPTIONS")
			w.WriteHeader(http.StatusMethodNotAllowed)
		})

		r.Options("/", ctrl.preflight)
		r.Get("/", ctrl.getSubscription)
		r.Post("/", ctrl.createSubscription)
		r.Delete("/", ctrl.deleteSubscription)
		r.Post("/refresh", ctrl.refreshSubscription)
	})

	return r
}

type controller struct {
	log *zap.Logger
	svc *lib.Service
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// endpointParam pulls the webhook query parameter, the identity of the
// subscription on every route.
func (ctrl *controller) endpointParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	endpoint := r.URL.Query().Get("webhook")
	if endpoint == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("webhook query parameter is required"))
		return "", false
	}
	return endpoint, true
}

func (ctrl *controller) preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.WriteHeader(http.StatusOK)
}

func (ctrl *controller) getSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endpoint, ok := ctrl.endpointParam(w, r)
	if !ok {
		return
	}

	sub, err := ctrl.svc.GetSubscription(ctx, endpoint)
	if errors.Is(err, store.ErrNotFound) {
		ctrl.reject(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	ctrl.resolve(w, http.StatusOK, SubscriptionView{}.From(sub))
}

func (ctrl *controller) createSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endpoint, ok := ctrl.endpointParam(w, r)
	if !ok {
		return
	}

	filter, err := readFilter(r)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, err)
		return
	}

	sub, err := ctrl.svc.CreateSubscription(ctx, endpoint, filter)
	if errors.Is(err, store.ErrConflict) {
		ctrl.reject(w, http.StatusConflict, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	ctrl.resolve(w, http.StatusCreated, SubscriptionView{}.From(sub))
}

func (ctrl *controller) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endpoint, ok := ctrl.endpointParam(w, r)
	if !ok {
		return
	}

	err := ctrl.svc.DeleteSubscription(ctx, endpoint)
	if errors.Is(err, store.ErrNotFound) {
		ctrl.reject(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	ctrl.resolve(w, http.StatusOK, map[string]any{"deleted": endpoint})
}

func (ctrl *controller) refreshSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endpoint, ok := ctrl.endpointParam(w, r)
	if !ok {
		return
	}

	report, err := ctrl.svc.RefreshSubscription(ctx, endpoint)
	if errors.Is(err, store.ErrNotFound) {
		ctrl.reject(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}

	ctrl.resolve(w, http.StatusOK, report)
}

func readFilter(r *http.Request) (models.Filter, error) {
	var filter models.Filter

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&filter)
		if err != nil && !errors.Is(err, io.EOF) {
			return filter, fmt.Errorf("decoding filter body: %w", err)
		}
		return filter, nil
	}

	filter.Category = r.FormValue("category")
	filter.Department = r.FormValue("department")
	filter.Search = r.FormValue("search")
	return filter, nil
}

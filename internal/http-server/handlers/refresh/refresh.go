package refreshPrices

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	resp "kream_tracker/internal/lib/api/response"
	sl "kream_tracker/internal/lib/logger"
	"kream_tracker/internal/storage"
	"kream_tracker/internal/sweep"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	sweep.Summary
}

type SweepRunner interface {
	Run(ctx context.Context) (sweep.Summary, error)
}

// New — триггер для внешнего cron'а. Авторизация по общему секрету,
// не по пользовательскому JWT.
func New(
	log *slog.Logger,
	sweeper SweepRunner,
	secret string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if !authorized(r, secret) {
			log.Warn("Unauthorized sweep trigger")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		summary, err := sweeper.Run(r.Context())
		if err != nil {
			if errors.Is(err, storage.ErrSweepInProgress) {
				log.Info("Sweep already in progress")

				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Sweep already in progress"))

				return
			}

			log.Error("Sweep failed", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Sweep completed",
			slog.Int("processed", summary.Processed),
			slog.Int("alerts_triggered", summary.AlertsTriggered),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Summary:  summary,
		})
	}
}

func authorized(r *http.Request, secret string) bool {
	authHeader := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

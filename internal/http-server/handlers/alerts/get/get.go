package getAlerts

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "kream_tracker/internal/lib/api/response"
	sl "kream_tracker/internal/lib/logger"
	authMiddlware "kream_tracker/internal/middleware/auth"
	"kream_tracker/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Alerts []models.PriceAlert `json:"alerts"`
}

type AlertsGetter interface {
	AlertsByUser(ctx context.Context, userID int64) ([]models.PriceAlert, error)
}

func New(
	log *slog.Logger,
	alerts AlertsGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.alerts.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authMiddlware.UserID(r)
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		list, err := alerts.AlertsByUser(ctx, userID)
		if err != nil {
			log.Error("Failed to get alerts", sl.Err(err), slog.Int64("user_id", userID))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		if list == nil {
			list = []models.PriceAlert{}
		}

		log.Info("Alerts got successfully",
			slog.Int64("user_id", userID),
			slog.Int("count", len(list)),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Alerts:   list,
		})
	}
}

package deleteAlert

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "kream_tracker/internal/lib/api/response"
	sl "kream_tracker/internal/lib/logger"
	authMiddlware "kream_tracker/internal/middleware/auth"
	"kream_tracker/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

type AlertRemover interface {
	DeleteAlert(ctx context.Context, alertID, userID int64) error
}

func New(
	log *slog.Logger,
	alerts AlertRemover,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.alerts.delete.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		alertID := parseAlertID(r)
		if alertID == -1 {
			log.Error("Invalid id")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid id"))

			return
		}

		userID, ok := authMiddlware.UserID(r)
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		err := alerts.DeleteAlert(ctx, alertID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrAlertNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Alert not found"))

				return
			}

			log.Error("Failed to delete alert",
				sl.Err(err),
				slog.Int64("user_id", userID),
				slog.Int64("alert_id", alertID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Alert deleted",
			slog.Int64("alert_id", alertID),
			slog.Int64("user_id", userID),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}

func parseAlertID(r *http.Request) int64 {
	alertIDStr := r.URL.Query().Get("id")
	if alertIDStr == "" {
		return -1
	}

	alertID, err := strconv.ParseInt(alertIDStr, 10, 64)
	if err != nil || alertID < 0 {
		return -1
	}

	return alertID
}

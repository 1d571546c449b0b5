package upsertAlert

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "kream_tracker/internal/lib/api/response"
	sl "kream_tracker/internal/lib/logger"
	authMiddlware "kream_tracker/internal/middleware/auth"
	"kream_tracker/internal/models"
	"kream_tracker/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

type Request struct {
	ItemID           int64    `json:"item_id" validate:"required"`
	Direction        string   `json:"direction" validate:"required,oneof=KR_MORE_EXPENSIVE JP_MORE_EXPENSIVE"`
	ThresholdPercent *float64 `json:"threshold_percent" validate:"required,min=0"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

type Response struct {
	resp.Response
	AlertID int64 `json:"alert_id"`
}

type AlertUpserter interface {
	UpsertAlert(ctx context.Context, alert models.PriceAlert) (int64, error)
}

func New(
	log *slog.Logger,
	alerts AlertUpserter,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.alerts.upsert.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		userID, ok := authMiddlware.UserID(r)
		if !ok {
			log.Error("User ID not found in context")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		alertID, err := alerts.UpsertAlert(ctx, models.PriceAlert{
			UserID:           userID,
			ItemID:           req.ItemID,
			Direction:        models.AlertDirection(req.Direction),
			ThresholdPercent: *req.ThresholdPercent,
			IsActive:         isActive,
		})
		if err != nil {
			if errors.Is(err, storage.ErrItemNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Item not found"))

				return
			}

			log.Error("Failed to upsert alert", sl.Err(err), slog.Int64("user_id", userID))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Alert saved",
			slog.Int64("alert_id", alertID),
			slog.Int64("user_id", userID),
			slog.Int64("item_id", req.ItemID),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			AlertID:  alertID,
		})
	}
}

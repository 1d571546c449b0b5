package addWatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "kream_tracker/internal/lib/api/response"
	sl "kream_tracker/internal/lib/logger"
	authMiddlware "kream_tracker/internal/middleware/auth"
	watchlistService "kream_tracker/internal/service/watchlist"
	"kream_tracker/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

type Request struct {
	ItemID           int64  `json:"item_id" validate:"required"`
	JPReferencePrice *int   `json:"jp_reference_price,omitempty" validate:"omitempty,min=0"`
	Currency         string `json:"currency,omitempty" validate:"omitempty,oneof=JPY"`
}

type Response struct {
	resp.Response
	EntryID int64 `json:"entry_id"`
}

type WatchAdder interface {
	Add(ctx context.Context, userID, itemID int64, jpReferencePrice *int, currency string) (int64, error)
}

func New(
	log *slog.Logger,
	watchlist WatchAdder,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.watchlist.add.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		entryID, err := watchlist.Add(ctx, userID, req.ItemID, req.JPReferencePrice, req.Currency)
		if err != nil {
			var limitErr *watchlistService.LimitExceededError

			switch {
			case errors.As(err, &limitErr):
				log.Info("Watchlist limit reached",
					slog.Int64("user_id", userID),
					slog.String("plan", string(limitErr.Plan)),
				)

				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error(limitErr.Error()))

			case errors.Is(err, storage.ErrAlreadyWatching):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Item is already in the watchlist"))

			case errors.Is(err, storage.ErrItemNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Item not found"))

			default:
				log.Error("Failed to add watch entry", sl.Err(err), slog.Int64("user_id", userID))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("Watch entry added",
			slog.Int64("entry_id", entryID),
			slog.Int64("user_id", userID),
			slog.Int64("item_id", req.ItemID),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			EntryID:  entryID,
		})
	}
}

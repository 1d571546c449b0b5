package removeWatch

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

type WatchRemover interface {
	Remove(ctx context.Context, userID, itemID int64) error
}

func New(
	log *slog.Logger,
	watchlist WatchRemover,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.watchlist.remove.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		itemID := parseItemID(r)
		if itemID == -1 {
			log.Error("Invalid item_id")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid item_id"))

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

		err := watchlist.Remove(ctx, userID, itemID)
		if err != nil {
			if errors.Is(err, storage.ErrWatchEntryNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Watch entry not found"))

				return
			}

			log.Error("Failed to remove watch entry",
				sl.Err(err),
				slog.Int64("user_id", userID),
				slog.Int64("item_id", itemID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Watch entry removed",
			slog.Int64("user_id", userID),
			slog.Int64("item_id", itemID),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}

func parseItemID(r *http.Request) int64 {
	itemIDStr := r.URL.Query().Get("item_id")
	if itemIDStr == "" {
		return -1
	}

	itemID, err := strconv.ParseInt(itemIDStr, 10, 64)
	if err != nil || itemID < 0 {
		return -1
	}

	return itemID
}

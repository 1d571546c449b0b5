package getWatchlist

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
	Watchlist []models.WatchlistRow `json:"watchlist"`
}

type WatchlistGetter interface {
	List(ctx context.Context, userID int64) ([]models.WatchlistRow, error)
}

func New(
	log *slog.Logger,
	watchlist WatchlistGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.watchlist.get.New"

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

		rows, err := watchlist.List(ctx, userID)
		if err != nil {
			log.Error("Failed to get watchlist", sl.Err(err), slog.Int64("user_id", userID))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		if rows == nil {
			rows = []models.WatchlistRow{}
		}

		log.Info("Watchlist got successfully",
			slog.Int64("user_id", userID),
			slog.Int("count", len(rows)),
		)

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			Watchlist: rows,
		})
	}
}

package getItem

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "kream_tracker/internal/lib/api/response"
	sl "kream_tracker/internal/lib/logger"
	"kream_tracker/internal/models"
	"kream_tracker/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	models.ItemDetail
}

type DetailGetter interface {
	Detail(ctx context.Context, itemID int64) (models.ItemDetail, error)
}

func New(
	log *slog.Logger,
	items DetailGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.items.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		itemID := parseItemID(r)
		if itemID == -1 {
			log.Error("Invalid id")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		detail, err := items.Detail(ctx, itemID)
		if err != nil {
			if errors.Is(err, storage.ErrItemNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Item not found"))

				return
			}

			log.Error("Failed to get item", sl.Err(err), slog.Int64("item_id", itemID))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		w.Header().Set("Cache-Control", "private, max-age=60")

		log.Info("Item got successfully", slog.Int64("item_id", itemID))

		render.JSON(w, r, Response{
			Response:   resp.OK(),
			ItemDetail: detail,
		})
	}
}

func parseItemID(r *http.Request) int64 {
	itemIDStr := r.URL.Query().Get("id")
	if itemIDStr == "" {
		return -1
	}

	itemID, err := strconv.ParseInt(itemIDStr, 10, 64)
	if err != nil || itemID < 0 {
		return -1
	}

	return itemID
}

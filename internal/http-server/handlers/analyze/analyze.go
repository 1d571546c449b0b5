package analyzeItem

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"kream_tracker/internal/crawler"
	resp "kream_tracker/internal/lib/api/response"
	sl "kream_tracker/internal/lib/logger"
	analyzeService "kream_tracker/internal/service/analyze"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

type Request struct {
	URL string `json:"url" validate:"required,url"`
}

type Response struct {
	resp.Response
	analyzeService.Result
}

type Analyzer interface {
	Analyze(ctx context.Context, url string) (analyzeService.Result, error)
}

func New(
	log *slog.Logger,
	analyzer Analyzer,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.analyze.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // * 1 МБ лимит запроса
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

		if !crawler.ValidateKreamURL(req.URL) {
			log.Error("Invalid KREAM URL", slog.String("url", req.URL))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid KREAM URL"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		result, err := analyzer.Analyze(ctx, req.URL)
		if err != nil {
			if errors.Is(err, crawler.ErrExtractionFailed) {
				log.Error("Failed to extract product", slog.String("url", req.URL), sl.Err(err))

				render.Status(r, http.StatusBadGateway)
				render.JSON(w, r, resp.Error("Failed to analyze KREAM page. The page structure may have changed."))

				return
			}

			log.Error("Failed to analyze item", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Item analyzed successfully", slog.Int64("item_id", result.ItemID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Result:   result,
		})
	}
}

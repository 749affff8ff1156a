package commands

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"excalidraw-desktop/bridge"
	"excalidraw-desktop/core"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// MaxRequestBytes bounds one bridge request body. Drawings with embedded
// images are large, so the limit is generous.
const MaxRequestBytes = 50 << 20

const defaultRecentLimit = 20

type (
	Invoker interface {
		Invoke(ctx context.Context, name string, payload json.RawMessage) bridge.Result
	}

	RecentLister interface {
		Recent(ctx context.Context, limit int) ([]core.RecentFile, error)
	}

	RecentResponse struct {
		Files []core.RecentFile `json:"files"`
	}
)

// HandleInvoke serves POST /api/bridge/{command}. Known commands always answer
// 200 with a result envelope, failures included.
func HandleInvoke(invoker Invoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "command")
		if _, err := bridge.ParseCommand(name); err != nil {
			logrus.WithField("command", name).Warn("Rejected unknown bridge command")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, bridge.Fail(err))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				render.Status(r, http.StatusRequestEntityTooLarge)
				render.JSON(w, r, bridge.Err("request body too large"))
				return
			}
			logrus.WithError(err).Error("Failed to read bridge request")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, bridge.Err("failed to read request body"))
			return
		}

		render.JSON(w, r, invoker.Invoke(r.Context(), name, payload))
	}
}

// HandleThumbnail serves the thumbnail of the document named by the path
// query parameter.
func HandleThumbnail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docPath := r.URL.Query().Get("path")
		if !core.IsDocument(docPath) {
			http.Error(w, "path must name a drawing document", http.StatusBadRequest)
			return
		}

		thumbPath := core.ThumbnailPath(docPath)
		log := logrus.WithField("thumbnail_path", thumbPath)
		data, err := os.ReadFile(thumbPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "Thumbnail not found", http.StatusNotFound)
				return
			}
			log.WithError(err).Error("Failed to read thumbnail")
			http.Error(w, "Failed to read thumbnail", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", mimetype.Detect(data).String())
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.WithError(err).Warn("Failed to write thumbnail response")
		}
	}
}

// HandleRecent serves the recently used documents, newest first.
func HandleRecent(lister RecentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRecentLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		files, err := lister.Recent(r.Context(), limit)
		if err != nil {
			logrus.WithError(err).Error("Failed to list recent files")
			http.Error(w, "Failed to list recent files", http.StatusInternalServerError)
			return
		}
		if files == nil {
			files = []core.RecentFile{}
		}

		render.JSON(w, r, RecentResponse{Files: files})
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/unemi/sportsmap/libs/httpx"
	"github.com/unemi/sportsmap/services/reservation-service/internal/availability"
	"github.com/unemi/sportsmap/services/reservation-service/internal/sessions"
	"github.com/unemi/sportsmap/services/reservation-service/internal/snapshot"
	"github.com/unemi/sportsmap/services/reservation-service/internal/upstream"
)

const maxSpreadsheetBytes = 10 << 20

type Uploader interface {
	UploadSpreadsheet(ctx context.Context, creds upstream.Credentials, filename string, body io.Reader) (json.RawMessage, error)
}

type Refresher interface {
	Refresh(ctx context.Context) (*snapshot.Snapshot, error)
}

type AdminHandler struct {
	store     Snapshots
	uploader  Uploader
	refresher Refresher
	logger    *slog.Logger
}

func NewAdminHandler(store Snapshots, uploader Uploader, refresher Refresher, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: store, uploader: uploader, refresher: refresher, logger: logger}
}

type snapshotSummary struct {
	FetchedAt string               `json:"fetched_at"`
	Count     int                  `json:"count"`
	Rejected  []snapshot.Rejection `json:"rejected,omitempty"`
	Inverted  int                  `json:"inverted"`
}

type overlapItem struct {
	Facility string `json:"facility"`
	FirstID  int64  `json:"first_id"`
	SecondID int64  `json:"second_id"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

func summarize(s *snapshot.Snapshot) snapshotSummary {
	return snapshotSummary{
		FetchedAt: s.FetchedAt.UTC().Format(time.RFC3339),
		Count:     len(s.Reservations),
		Rejected:  s.Rejected,
		Inverted:  s.Inverted,
	}
}

func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.refresher.Refresh(r.Context())
	if err != nil {
		h.logger.Error("manual refresh failed", "err", err)
		http.Error(w, "refresh failed", http.StatusBadGateway)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summarize(snap))
}

// Upload forwards the spreadsheet to upstream under the caller's session and
// refreshes the snapshot so the import is visible at once.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSpreadsheetBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "multipart field \"file\" required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := header.Filename
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") && !strings.HasSuffix(strings.ToLower(name), ".xls") {
		http.Error(w, "only .xlsx or .xls spreadsheets are accepted", http.StatusBadRequest)
		return
	}

	sess := sessions.FromContext(r.Context())
	result, err := h.uploader.UploadSpreadsheet(r.Context(), sess, name, file)
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) && se.Status < 500 {
			msg := se.Message
			if msg == "" {
				msg = "upstream rejected the spreadsheet"
			}
			http.Error(w, msg, http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("spreadsheet upload failed", "err", err, "filename", name)
		http.Error(w, "upload failed", http.StatusBadGateway)
		return
	}

	resp := map[string]any{"upstream": result, "refreshed": false}
	if snap, err := h.refresher.Refresh(r.Context()); err != nil {
		h.logger.Warn("refresh after upload failed", "err", err)
	} else {
		resp["refreshed"] = true
		resp["snapshot"] = summarize(snap)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) Overlaps(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("facility"))
	found := availability.Overlaps(code, h.store.Reservations())
	items := make([]overlapItem, 0, len(found))
	for _, o := range found {
		shared, _ := availability.Interval{Start: o.First.Start, End: o.First.End}.
			Clip(availability.Interval{Start: o.Second.Start, End: o.Second.End})
		items = append(items, overlapItem{
			Facility: o.First.FacilityCode,
			FirstID:  o.First.ID,
			SecondID: o.Second.ID,
			Start:    shared.Start.Format(time.RFC3339),
			End:      shared.End.Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"overlaps": items})
}

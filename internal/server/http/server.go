// Package httpserver exposes the sync, provisioning, and purge triggers as a
// small JSON-over-HTTP surface.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/shutterdesk/shutterdesk/internal/errs"
	"github.com/shutterdesk/shutterdesk/internal/model"
	"github.com/shutterdesk/shutterdesk/internal/provision"
	"github.com/shutterdesk/shutterdesk/internal/purge"
	"github.com/shutterdesk/shutterdesk/internal/syncer"
)

// Syncer dispatches one entity mirror operation.
type Syncer interface {
	Sync(ctx context.Context, req syncer.Request) (*syncer.Summary, error)
}

// Provisioner sets up a new firm.
type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) (*provision.Result, error)
}

// Purger sweeps expired firms.
type Purger interface {
	Run(ctx context.Context, now time.Time) (*purge.Report, error)
}

// Server wires the handlers onto a mux.
type Server struct {
	sync      Syncer
	provision Provisioner
	purge     Purger
	log       *zap.Logger
	now       func() time.Time
}

// New constructs a Server.
func New(s Syncer, p Provisioner, pg Purger, log *zap.Logger) *Server {
	return &Server{sync: s, provision: p, purge: pg, log: log, now: time.Now}
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sync", s.handleSync)
	mux.HandleFunc("POST /v1/firms/provision", s.handleProvision)
	mux.HandleFunc("POST /v1/purge/run", s.handlePurge)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return Recover(s.log, Logging(s.log, mux))
}

type syncRequest struct {
	ItemType  string `json:"itemType"`
	ItemID    int64  `json:"itemId"`
	FirmID    string `json:"firmId"`
	Operation string `json:"operation"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var in syncRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	entityType, err := model.ParseEntityType(in.ItemType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "itemType: "+err.Error())
		return
	}
	op, err := model.ParseOperation(in.Operation)
	if err != nil {
		writeError(w, http.StatusBadRequest, "operation: "+err.Error())
		return
	}
	firmID, err := uuid.FromString(in.FirmID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "firmId: "+err.Error())
		return
	}

	sum, err := s.sync.Sync(r.Context(), syncer.Request{
		Type: entityType, ID: in.ItemID, FirmID: firmID, Op: op,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"itemType": sum.Type,
		"itemId":   sum.ID,
		"tabs":     sum.Tabs,
		"rows":     sum.Rows,
	})
}

type provisionRequest struct {
	FirmName           string `json:"firmName"`
	OwnerUserID        string `json:"ownerUserId"`
	SpreadsheetID      string `json:"spreadsheetId"`
	CalendarOwnerEmail string `json:"calendarOwnerEmail"`
	TimeZone           string `json:"timeZone"`
	GraceDays          int    `json:"graceDays"`
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	var in provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if in.FirmName == "" || in.SpreadsheetID == "" || in.CalendarOwnerEmail == "" {
		writeError(w, http.StatusBadRequest, "firmName, spreadsheetId, calendarOwnerEmail are required")
		return
	}
	ownerID, err := uuid.FromString(in.OwnerUserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ownerUserId: "+err.Error())
		return
	}
	firmID, err := uuid.NewV4()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if in.GraceDays <= 0 {
		in.GraceDays = 14
	}
	if in.TimeZone == "" {
		in.TimeZone = "UTC"
	}

	res, err := s.provision.Provision(r.Context(), provision.Request{
		FirmID:             firmID,
		FirmName:           in.FirmName,
		OwnerUserID:        ownerID,
		SpreadsheetID:      in.SpreadsheetID,
		CalendarOwnerEmail: in.CalendarOwnerEmail,
		TimeZone:           in.TimeZone,
		GraceUntil:         s.now().AddDate(0, 0, in.GraceDays),
	})
	if err != nil {
		var phaseErr *provision.PhaseError
		if errors.As(err, &phaseErr) {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"success": false,
				"phase":   phaseErr.Phase,
				"error":   phaseErr.Err.Error(),
			})
			return
		}
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"firmId":        res.FirmID,
		"spreadsheetId": res.SpreadsheetID,
		"calendarId":    res.CalendarID,
	})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	report, err := s.purge.Run(r.Context(), s.now())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	out := map[string]any{
		"success":     true,
		"purgedCount": report.PurgedCount,
		"timestamp":   s.now().UTC().Format(time.RFC3339),
	}
	if len(report.Errors) > 0 {
		out["errors"] = report.Errors
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrUnknownEntityType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAuthFailed), errors.Is(err, errs.ErrForbidden):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/procuroid/procurement-engine/internal/model"
	"github.com/procuroid/procurement-engine/internal/reconcile"
	"github.com/procuroid/procurement-engine/internal/store"
	"github.com/procuroid/procurement-engine/internal/workflow"
)

// launchTimeout bounds the background supplier dispatch kicked off by
// procurement intake.
const launchTimeout = 10 * time.Minute

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateProcurement accepts a procurement request, creates the run,
// and launches supplier dispatch in the background. Responds 202 with the
// run still in scouting.
func (s *Server) handleCreateProcurement(w http.ResponseWriter, r *http.Request) {
	var req model.ProcurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := s.coordinator.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Dispatch runs detached from the request: placing a batch of phone
	// calls takes far longer than an HTTP client will wait.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), launchTimeout)
		defer cancel()
		if _, err := s.coordinator.Launch(ctx, run); err != nil {
			zap.L().Error("api: workflow launch failed",
				zap.String("workflow_id", run.ID),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	filter := store.WorkflowFilter{
		Phase: model.WorkflowPhase(r.URL.Query().Get("phase")),
	}
	runs, err := s.coordinator.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list workflows failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": runs})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	run, err := s.coordinator.Get(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load workflow failed")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type approveRequest struct {
	QuotationID string `json:"quotation_id"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuotationID == "" {
		writeError(w, http.StatusBadRequest, "quotation_id is required")
		return
	}

	run, err := s.coordinator.Approve(r.Context(), chi.URLParam(r, "workflowID"), req.QuotationID)
	if err != nil {
		if errors.Is(err, workflow.ErrInvalidApproval) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		zap.L().Error("api: approve failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "approval failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	ranked, err := s.coordinator.Comparison(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotations": ranked})
}

// handleTranscriptWebhook receives post-call payloads from the calling
// provider. Reprocessing an already-reconciled call requires ?force=true.
func (s *Server) handleTranscriptWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	transcript, err := reconcile.ParseWebhook(body)
	if err != nil {
		zap.L().Warn("api: webhook payload rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, "unrecognized webhook payload")
		return
	}

	force := r.URL.Query().Get("force") == "true"
	record, err := s.reconciler.Reconcile(r.Context(), *transcript, reconcile.SourceWebhook, force)
	if err != nil {
		zap.L().Error("api: webhook reconcile failed",
			zap.String("call_id", transcript.CallID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "reconcile failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	var req model.MeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meeting, err := s.coordinator.ScheduleMeeting(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.store.ListMeetings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list meetings failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": meetings})
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.store.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list suppliers failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
}

func (s *Server) handleUpsertSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier model.Supplier
	if err := json.NewDecoder(r.Body).Decode(&supplier); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if supplier.Name == "" {
		writeError(w, http.StatusBadRequest, "supplier name is required")
		return
	}

	saved, err := s.store.UpsertSupplier(r.Context(), supplier)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save supplier failed")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSupplier(r.Context(), chi.URLParam(r, "supplierID")); err != nil {
		writeError(w, http.StatusNotFound, "supplier not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

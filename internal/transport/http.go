package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yacnet/signupd/internal/domain/project"
	"github.com/yacnet/signupd/internal/domain/signup"
	"github.com/yacnet/signupd/internal/domain/slot"
)

// Server wires HTTP handlers.
type Server struct {
	projects *project.Service
	slots    *slot.Service
	signups  *signup.Service
	logger   *slog.Logger
}

// Options carries the server's collaborators.
type Options struct {
	Projects *project.Service
	Slots    *slot.Service
	Signups  *signup.Service
	Verifier AdminVerifier
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewServer creates the HTTP router. Signup and read routes are public;
// project/slot administration and volunteer management require a verified
// admin bearer token.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		projects: opts.Projects,
		slots:    opts.Slots,
		signups:  opts.Signups,
		logger:   logger,
	}

	r := chi.NewRouter()

	r.Get("/health", srv.handleHealth)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", srv.handleListProjects)
		r.Get("/projects/{projectID}/slots", srv.handleListSlots)
		r.Post("/projects/{projectID}/slots/{slotID}/signup", srv.handleSignup)

		r.Group(func(r chi.Router) {
			if opts.Verifier != nil {
				r.Use(AdminOnly(opts.Verifier))
			}
			r.Post("/projects", srv.handleCreateProject)
			r.Post("/projects/{projectID}/slots", srv.handleCreateSlot)
			r.Patch("/projects/{projectID}/slots/{slotID}", srv.handleUpdateSlot)
			r.Delete("/projects/{projectID}/slots/{slotID}", srv.handleDeleteSlot)
			r.Get("/projects/{projectID}/slots/{slotID}/volunteers", srv.handleListVolunteers)
			r.Delete("/projects/{projectID}/slots/{slotID}/volunteers/{volunteerID}", srv.handleWithdraw)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.projects.ListWithTotals(r.Context())
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load projects.")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		Category         string `json:"category"`
		ContactEmail     string `json:"contactEmail"`
		ContactFirstName string `json:"contactFirstName"`
		ContactLastName  string `json:"contactLastName"`
		ContactPhone     string `json:"contactPhone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	proj, err := s.projects.Create(r.Context(), project.CreateRequest{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		Contact: project.Contact{
			Email:     body.ContactEmail,
			FirstName: body.ContactFirstName,
			LastName:  body.ContactLastName,
			Phone:     body.ContactPhone,
		},
	})
	if err != nil {
		if errors.Is(err, project.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Missing required project info.")
			return
		}
		s.logger.Error("failed to create project", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create project.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Project created successfully!",
		"project": proj,
	})
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	slots, err := s.slots.List(r.Context(), projectID)
	if err != nil {
		s.logger.Error("failed to list slots", "project", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load slots.")
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var body struct {
		Task     string `json:"task"`
		Date     string `json:"date"`
		Time     string `json:"time"`
		Capacity int    `json:"capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	created, err := s.slots.Create(r.Context(), projectID, slot.CreateRequest{
		Task:     body.Task,
		Date:     body.Date,
		Time:     body.Time,
		Capacity: body.Capacity,
	})
	if err != nil {
		if errors.Is(err, slot.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Missing required slot info.")
			return
		}
		s.logger.Error("failed to create slot", "project", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create slot.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Slot created successfully!",
		"slot":    created,
	})
}

type updateSlotRequest struct {
	Task      *string         `json:"task"`
	Date      *string         `json:"date"`
	Time      *string         `json:"time"`
	Status    *string         `json:"status"`
	Capacity  *int            `json:"capacity"`
	Volunteer json.RawMessage `json:"volunteer"`
}

func (s *Server) handleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	slotID := chi.URLParam(r, "slotID")

	var body updateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	req := slot.UpdateRequest{
		Task:     body.Task,
		Date:     body.Date,
		Time:     body.Time,
		Status:   body.Status,
		Capacity: body.Capacity,
	}
	if len(body.Volunteer) > 0 {
		if bytes.Equal(bytes.TrimSpace(body.Volunteer), []byte("null")) {
			req.ClearVolunteer = true
		} else {
			var v slot.LegacyVolunteer
			if err := json.Unmarshal(body.Volunteer, &v); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid volunteer payload.")
				return
			}
			req.Volunteer = &v
		}
	}

	updated, err := s.slots.Update(r.Context(), projectID, slotID, req)
	if err != nil {
		switch {
		case errors.Is(err, slot.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, "Slot not found.")
		case errors.Is(err, slot.ErrNoFields):
			writeError(w, http.StatusBadRequest, "No recognized fields provided to update.")
		case errors.Is(err, slot.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Invalid slot update.")
		default:
			s.logger.Error("failed to update slot", "project", projectID, "slot", slotID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to update slot.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Slot updated successfully.",
		"slot":    updated,
	})
}

func (s *Server) handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	slotID := chi.URLParam(r, "slotID")

	if err := s.slots.Delete(r.Context(), projectID, slotID); err != nil {
		if errors.Is(err, slot.ErrSlotNotFound) {
			writeError(w, http.StatusNotFound, "Slot not found.")
			return
		}
		s.logger.Error("failed to delete slot", "project", projectID, "slot", slotID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete slot.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	slotID := chi.URLParam(r, "slotID")

	var body signup.NewVolunteer
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := s.signups.Signup(r.Context(), projectID, slotID, body)
	if err != nil {
		switch {
		case errors.Is(err, signup.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Missing volunteer name or email.")
		case errors.Is(err, slot.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, "Slot not found.")
		case errors.Is(err, signup.ErrSlotFull):
			writeError(w, http.StatusConflict, "This slot is already full.")
		case errors.Is(err, signup.ErrConflict):
			writeError(w, http.StatusConflict, "Sorry, that slot was just taken. Please choose another.")
		default:
			s.logger.Error("signup failed", "project", projectID, "slot", slotID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to sign up for slot.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Slot signed up successfully!",
		"slot":      result.Slot,
		"volunteer": result.Volunteer,
	})
}

func (s *Server) handleListVolunteers(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	slotID := chi.URLParam(r, "slotID")

	volunteers, err := s.signups.ListVolunteers(r.Context(), projectID, slotID)
	if err != nil {
		s.logger.Error("failed to list volunteers", "project", projectID, "slot", slotID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load volunteers for this slot.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"volunteers": volunteers})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	slotID := chi.URLParam(r, "slotID")
	volunteerID := chi.URLParam(r, "volunteerID")

	result, err := s.signups.Withdraw(r.Context(), projectID, slotID, volunteerID)
	if err != nil {
		if errors.Is(err, signup.ErrVolunteerNotFound) {
			writeError(w, http.StatusNotFound, "Volunteer signup not found.")
			return
		}
		s.logger.Error("withdrawal failed", "project", projectID, "slot", slotID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove volunteer from slot.")
		return
	}

	message := "Volunteer removed from slot."
	if result.CountsStale {
		message = "Volunteer removed, but slot counts may be stale. Please refresh."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   message,
		"slot":      result.Slot,
		"volunteer": result.Volunteer,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"proctor-backend/internal/middleware"
	"proctor-backend/internal/models"
	"proctor-backend/internal/services"
)

type ExamHandler struct {
	examService *services.ExamService
}

func NewExamHandler(examService *services.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

func examIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *ExamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	exam, err := h.examService.CreateExam(r.Context(), req, middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusCreated, "Exam created", exam)
}

func (h *ExamHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.examService.ListExams(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Exams listed", views)
}

func (h *ExamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	views, err := h.examService.ListMyExams(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Registered exams listed", views)
}

func (h *ExamHandler) Get(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(r)
	if !ok {
		writeFailure(w, r, http.StatusBadRequest, "Invalid exam id", nil)
		return
	}

	detail, err := h.examService.GetExam(r.Context(), examID, middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Exam found", detail)
}

// Register adds the caller themselves; registering someone else is not a
// thing this API offers.
func (h *ExamHandler) Register(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(r)
	if !ok {
		writeFailure(w, r, http.StatusBadRequest, "Invalid exam id", nil)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.examService.RegisterParticipant(r.Context(), examID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	detail, err := h.examService.GetExam(r.Context(), examID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusCreated, "Registered", detail.ExamView)
}

func (h *ExamHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(r)
	if !ok {
		writeFailure(w, r, http.StatusBadRequest, "Invalid exam id", nil)
		return
	}

	if err := h.examService.UnregisterParticipant(r.Context(), examID, middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Unregistered", nil)
}

func (h *ExamHandler) Participants(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(r)
	if !ok {
		writeFailure(w, r, http.StatusBadRequest, "Invalid exam id", nil)
		return
	}

	views, err := h.examService.ListParticipants(r.Context(), examID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Participants listed", views)
}

func (h *ExamHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(r)
	if !ok {
		writeFailure(w, r, http.StatusBadRequest, "Invalid exam id", nil)
		return
	}

	resp, err := h.examService.StartSession(r.Context(), examID, middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusCreated, "Session started", resp)
}

func (h *ExamHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(r)
	if !ok {
		writeFailure(w, r, http.StatusBadRequest, "Invalid exam id", nil)
		return
	}

	if err := h.examService.EndSession(r.Context(), examID, middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, "Session ended", nil)
}

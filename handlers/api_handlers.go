package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classtrack/export"
	"classtrack/models"
	"classtrack/reminder"
	"classtrack/schedule"
	"classtrack/timetable"
)

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Store     *schedule.Store
	Importer  *timetable.Importer
	Reminders *reminder.Scheduler
	Logger    *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(store *schedule.Store, importer *timetable.Importer, reminders *reminder.Scheduler, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		Store:     store,
		Importer:  importer,
		Reminders: reminders,
		Logger:    logger,
	}
}

// Register mounts the API routes on r.
func (h *APIHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/ping", PingHandler)

		// Subject routes
		api.GET("/subjects", h.ListSubjects)
		api.POST("/subjects", h.AddSubject)
		api.PUT("/subjects/:id", h.UpdateSubject)
		api.DELETE("/subjects/:id", h.RemoveSubject)
		api.GET("/schedule", h.GetSchedule)

		// Exam routes
		api.GET("/exams", h.ListExams)
		api.POST("/exams", h.AddExam)
		api.DELETE("/exams/:id", h.RemoveExam)

		// Attendance routes
		api.GET("/attendance", h.GetAttendance)
		api.POST("/attendance/:subjectId", h.MarkAttendance)
		api.PUT("/attendance/by-name/:name", h.SetAttended)
		api.GET("/prompts", h.ListPrompts)

		// Import routes
		api.POST("/import/image", h.ImportImage)
		api.POST("/import/spreadsheet", h.ImportSpreadsheet)

		// Export routes
		api.GET("/export/pdf", h.ExportPDF)
		api.GET("/export/xlsx", h.ExportXLSX)
	}
}

// respondError maps store errors to status codes.
func (h *APIHandler) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrSubjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
	case errors.Is(err, schedule.ErrExamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Exam not found"})
	default:
		h.Logger.Error("Handler error", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
	}
}

// --- Subject Handlers ---

// ListSubjects handles GET /api/subjects
func (h *APIHandler) ListSubjects(c *gin.Context) {
	subjects := h.Store.ListSubjects()
	if subjects == nil {
		// Return empty list instead of null for JSON consistency
		c.JSON(http.StatusOK, []models.Subject{})
		return
	}
	c.JSON(http.StatusOK, subjects)
}

// AddSubject handles POST /api/subjects
func (h *APIHandler) AddSubject(c *gin.Context) {
	var in schedule.NewSubject
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	added, err := h.Store.AddSubject(in)
	if err != nil {
		h.respondError(c, "add subject", err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// UpdateSubject handles PUT /api/subjects/:id
func (h *APIHandler) UpdateSubject(c *gin.Context) {
	var upd models.Subject
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	subject, err := h.Store.UpdateSubject(c.Param("id"), upd)
	if err != nil {
		h.respondError(c, "update subject", err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

// RemoveSubject handles DELETE /api/subjects/:id
func (h *APIHandler) RemoveSubject(c *gin.Context) {
	id := c.Param("id")
	if err := h.Store.RemoveSubject(id); err != nil {
		h.respondError(c, "remove subject", err)
		return
	}
	// a prompt for a removed subject can no longer be answered
	if h.Reminders != nil {
		h.Reminders.Answer(id)
	}
	c.Status(http.StatusNoContent)
}

// GetSchedule handles GET /api/schedule
func (h *APIHandler) GetSchedule(c *gin.Context) {
	days := h.Store.DailySchedule()
	if days == nil {
		c.JSON(http.StatusOK, []models.DaySchedule{})
		return
	}
	c.JSON(http.StatusOK, days)
}

// --- Exam Handlers ---

// ListExams handles GET /api/exams
func (h *APIHandler) ListExams(c *gin.Context) {
	exams := h.Store.ListExams()
	if exams == nil {
		c.JSON(http.StatusOK, []models.Exam{})
		return
	}
	c.JSON(http.StatusOK, exams)
}

// AddExam handles POST /api/exams
func (h *APIHandler) AddExam(c *gin.Context) {
	var in models.Exam
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	exam, err := h.Store.AddExam(in)
	if err != nil {
		h.respondError(c, "add exam", err)
		return
	}
	c.JSON(http.StatusCreated, exam)
}

// RemoveExam handles DELETE /api/exams/:id
func (h *APIHandler) RemoveExam(c *gin.Context) {
	if err := h.Store.RemoveExam(c.Param("id")); err != nil {
		h.respondError(c, "remove exam", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Attendance Handlers ---

// GetAttendance handles GET /api/attendance
func (h *APIHandler) GetAttendance(c *gin.Context) {
	rows := h.Store.AttendanceSummary()
	if rows == nil {
		c.JSON(http.StatusOK, []models.AttendanceSummary{})
		return
	}
	c.JSON(http.StatusOK, rows)
}

type markRequest struct {
	Attended *bool `json:"attended" binding:"required"`
}

// MarkAttendance handles POST /api/attendance/:subjectId
func (h *APIHandler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	subjectID := c.Param("subjectId")
	summary, err := h.Store.MarkAttendance(subjectID, *req.Attended)
	if err != nil {
		h.respondError(c, "mark attendance", err)
		return
	}
	if h.Reminders != nil {
		h.Reminders.Answer(subjectID)
	}
	c.JSON(http.StatusOK, summary)
}

type setAttendedRequest struct {
	Attended *int `json:"attended" binding:"required"`
}

// SetAttended handles PUT /api/attendance/by-name/:name
func (h *APIHandler) SetAttended(c *gin.Context) {
	var req setAttendedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	summary, err := h.Store.SetAttended(c.Param("name"), *req.Attended)
	if err != nil {
		h.respondError(c, "set attendance", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListPrompts handles GET /api/prompts
func (h *APIHandler) ListPrompts(c *gin.Context) {
	var prompts []models.Prompt
	if h.Reminders != nil {
		prompts = h.Reminders.Pending()
	}
	if prompts == nil {
		prompts = []models.Prompt{}
	}
	c.JSON(http.StatusOK, prompts)
}

// --- Import Handlers ---

// ImportImage handles POST /api/import/image
func (h *APIHandler) ImportImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	h.Logger.Info("Received timetable image", zap.String("filename", header.Filename), zap.Int64("size", header.Size))

	added, err := h.Importer.ImportImage(c.Request.Context(), file)
	if err != nil {
		h.respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": len(added),
		"subjects":      added,
	})
}

// ImportSpreadsheet handles POST /api/import/spreadsheet
func (h *APIHandler) ImportSpreadsheet(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	h.Logger.Info("Received timetable spreadsheet", zap.String("filename", header.Filename))

	added, err := h.Importer.ImportSpreadsheet(file)
	if err != nil {
		h.respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": len(added),
		"subjects":      added,
	})
}

func (h *APIHandler) respondImportError(c *gin.Context, err error) {
	var ue *timetable.UserError
	if errors.As(err, &ue) {
		h.Logger.Warn("Import failed", zap.String("message", ue.Message), zap.Error(ue.Err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": ue.Message})
		return
	}
	h.Logger.Error("Import failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": timetable.MsgProcessingFailed})
}

// --- Export Handlers ---

// ExportPDF handles GET /api/export/pdf
func (h *APIHandler) ExportPDF(c *gin.Context) {
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, h.Store.ListSubjects(), h.Store.ListExams()); err != nil {
		h.respondError(c, "export pdf", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="student_schedule.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ExportXLSX handles GET /api/export/xlsx
func (h *APIHandler) ExportXLSX(c *gin.Context) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, h.Store.ListSubjects(), h.Store.ListExams()); err != nil {
		h.respondError(c, "export xlsx", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="student_schedule.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}

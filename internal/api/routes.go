package api

import (
	"net/http"

	"github.com/consultorio/backend/internal/middleware"
	"github.com/gorilla/mux"
)

// Routes registra a API em r. loginLimiter (opcional) limita login/registro/forgot por IP.
// Rotas literais vêm antes das com {id} para o mux não confundir "week" com um id.
func (h *Handler) Routes(r *mux.Router, loginLimiter *middleware.LimiterStore) {
	limited := func(fn http.HandlerFunc) http.Handler {
		if loginLimiter == nil {
			return fn
		}
		return middleware.RateLimit(loginLimiter)(fn)
	}

	public := r.PathPrefix("/api").Subrouter()
	public.Handle("/auth/register", limited(h.Register)).Methods(http.MethodPost)
	public.Handle("/auth/login", limited(h.Login)).Methods(http.MethodPost)
	public.Handle("/auth/password/forgot", limited(h.ForgotPassword)).Methods(http.MethodPost)
	public.HandleFunc("/auth/password/reset", h.ResetPassword).Methods(http.MethodPost)
	public.HandleFunc("/public/appointments/confirm/{token}", h.GetConfirmation).Methods(http.MethodGet)
	public.HandleFunc("/public/appointments/confirm/{token}", h.Confirm).Methods(http.MethodPost)
	public.HandleFunc("/public/documents/verify/{token}", h.VerifyDocument).Methods(http.MethodGet)
	public.Handle("/errors/frontend", middleware.OptionalAuthMiddleware(h.Cfg.JWTSecret)(http.HandlerFunc(h.IngestFrontendError))).Methods(http.MethodPost)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(middleware.RequireAuthMiddleware(h.Cfg.JWTSecret))
	admin.Use(middleware.RequireSuperAdmin)
	admin.HandleFunc("/errors", h.ListErrorEvents).Methods(http.MethodGet)
	admin.HandleFunc("/therapists", h.ListTherapists).Methods(http.MethodGet)
	admin.HandleFunc("/therapists/{id}/status", h.PatchTherapistStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/timeline", h.AdminTimeline).Methods(http.MethodGet)
	admin.HandleFunc("/reminders/trigger", h.AdminTriggerReminders).Methods(http.MethodPost)

	me := r.PathPrefix("/api/me").Subrouter()
	me.Use(middleware.RequireAuthMiddleware(h.Cfg.JWTSecret))
	me.HandleFunc("", h.Me).Methods(http.MethodGet)
	me.HandleFunc("/profile", h.GetMyProfile).Methods(http.MethodGet)
	me.HandleFunc("/profile", h.PatchMyProfile).Methods(http.MethodPatch)
	me.HandleFunc("/avatar", h.UploadAvatar).Methods(http.MethodPost)
	me.HandleFunc("/password", h.ChangeMyPassword).Methods(http.MethodPut)
	me.HandleFunc("/audit", h.AuditTimeline).Methods(http.MethodGet)

	p := r.PathPrefix("/api").Subrouter()
	p.Use(middleware.RequireAuthMiddleware(h.Cfg.JWTSecret))
	p.Use(middleware.RequireTherapist)

	p.HandleFunc("/patients", h.ListPatients).Methods(http.MethodGet)
	p.HandleFunc("/patients", h.CreatePatient).Methods(http.MethodPost)
	p.HandleFunc("/patients/birthdays", h.Birthdays).Methods(http.MethodGet)
	p.HandleFunc("/patients/{id}", h.GetPatient).Methods(http.MethodGet)
	p.HandleFunc("/patients/{id}", h.UpdatePatient).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/patients/{id}", h.DeletePatient).Methods(http.MethodDelete)
	p.HandleFunc("/patients/{id}/summary", h.PatientSummary).Methods(http.MethodGet)
	p.HandleFunc("/patients/{id}/appointments", h.PatientAppointments).Methods(http.MethodGet)
	p.HandleFunc("/patients/{id}/payment-reminder-link", h.PaymentReminderLink).Methods(http.MethodGet)
	p.HandleFunc("/patients/{id}/clinical-records", h.ListClinicalRecords).Methods(http.MethodGet)
	p.HandleFunc("/patients/{id}/clinical-records", h.CreateClinicalRecord).Methods(http.MethodPost)
	p.HandleFunc("/patients/{id}/clinical-records/export.pdf", h.ExportClinicalRecordsPDF).Methods(http.MethodGet)
	p.HandleFunc("/clinical-records/{rid}", h.GetClinicalRecord).Methods(http.MethodGet)
	p.HandleFunc("/clinical-records/{rid}", h.UpdateClinicalRecord).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/clinical-records/{rid}", h.DeleteClinicalRecord).Methods(http.MethodDelete)

	p.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	p.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	p.HandleFunc("/appointments/week", h.WeekAppointments).Methods(http.MethodGet)
	p.HandleFunc("/appointments/available", h.AvailableSlots).Methods(http.MethodGet)
	p.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods(http.MethodDelete)
	p.HandleFunc("/appointments/{id}/reminder-sent", h.MarkReminderSent).Methods(http.MethodPost)
	p.HandleFunc("/appointments/{id}/reminder-link", h.ReminderLink).Methods(http.MethodGet)

	p.HandleFunc("/automations", h.ListAutomations).Methods(http.MethodGet)
	p.HandleFunc("/automations/preview", h.PreviewAutomation).Methods(http.MethodPost)
	p.HandleFunc("/automations/reminders/run", h.RunReminders).Methods(http.MethodPost)
	p.HandleFunc("/automations/{id}", h.PatchAutomation).Methods(http.MethodPatch)
	p.HandleFunc("/automations/{id}/toggle", h.ToggleAutomation).Methods(http.MethodPost)

	p.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	p.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	p.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	p.HandleFunc("/transactions/{id}", h.UpdateTransaction).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods(http.MethodDelete)
	p.HandleFunc("/financial/summary", h.FinancialSummary).Methods(http.MethodGet)
	p.HandleFunc("/financial/report", h.FinancialReport).Methods(http.MethodGet)
	p.HandleFunc("/payments/checkout", h.CreateCheckout).Methods(http.MethodPost)
	p.HandleFunc("/payments/subscription", h.CreateSubscription).Methods(http.MethodPost)

	p.HandleFunc("/documents", h.ListDocuments).Methods(http.MethodGet)
	p.HandleFunc("/documents", h.CreateDocument).Methods(http.MethodPost)
	p.HandleFunc("/documents/{id}", h.GetDocument).Methods(http.MethodGet)
	p.HandleFunc("/documents/{id}", h.UpdateDocument).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/documents/{id}", h.DeleteDocument).Methods(http.MethodDelete)
	p.HandleFunc("/documents/{id}/pdf", h.DocumentPDF).Methods(http.MethodGet)

	p.HandleFunc("/leads", h.ListLeads).Methods(http.MethodGet)
	p.HandleFunc("/leads", h.CreateLead).Methods(http.MethodPost)
	p.HandleFunc("/leads/board", h.LeadsBoard).Methods(http.MethodGet)
	p.HandleFunc("/leads/stats", h.LeadsStats).Methods(http.MethodGet)
	p.HandleFunc("/leads/{id}", h.GetLead).Methods(http.MethodGet)
	p.HandleFunc("/leads/{id}", h.UpdateLead).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/leads/{id}", h.DeleteLead).Methods(http.MethodDelete)
	p.HandleFunc("/leads/{id}/status", h.PatchLeadStatus).Methods(http.MethodPatch)
	p.HandleFunc("/leads/{id}/convert", h.ConvertLead).Methods(http.MethodPost)

	p.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	p.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	p.HandleFunc("/tasks/{id}", h.GetTask).Methods(http.MethodGet)
	p.HandleFunc("/tasks/{id}", h.UpdateTask).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/tasks/{id}", h.DeleteTask).Methods(http.MethodDelete)
	p.HandleFunc("/tasks/{id}/toggle", h.ToggleTask).Methods(http.MethodPost)

	p.HandleFunc("/resources", h.ListResources).Methods(http.MethodGet)
	p.HandleFunc("/resources", h.CreateResource).Methods(http.MethodPost)
	p.HandleFunc("/resources/upload", h.UploadResource).Methods(http.MethodPost)
	p.HandleFunc("/resources/{id}", h.GetResource).Methods(http.MethodGet)
	p.HandleFunc("/resources/{id}", h.UpdateResource).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/resources/{id}", h.DeleteResource).Methods(http.MethodDelete)
	p.HandleFunc("/resources/{id}/share", h.ShareResource).Methods(http.MethodPost)

	p.HandleFunc("/partners", h.ListPartners).Methods(http.MethodGet)
	p.HandleFunc("/partners", h.CreatePartner).Methods(http.MethodPost)
	p.HandleFunc("/partners/{id}", h.GetPartner).Methods(http.MethodGet)
	p.HandleFunc("/partners/{id}", h.UpdatePartner).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc("/partners/{id}", h.DeletePartner).Methods(http.MethodDelete)
	p.HandleFunc("/partners/{id}/referral", h.AddPartnerReferral).Methods(http.MethodPost)

	p.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	p.HandleFunc("/dashboard/suggestions", h.Suggestions).Methods(http.MethodGet)
}

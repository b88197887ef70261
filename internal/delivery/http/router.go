package http

import (
	"net/http"

	"clinic-scheduling/internal/delivery/http/handler"
	"clinic-scheduling/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	bookingHandler      *handler.BookingHandler
	availabilityHandler *handler.AvailabilityHandler
	queueHandler        *handler.QueueHandler
	auditLogHandler     *handler.AuditLogHandler
	realtimeHandler     *handler.RealtimeHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

func NewRouter(
	bookingHandler *handler.BookingHandler,
	availabilityHandler *handler.AvailabilityHandler,
	queueHandler *handler.QueueHandler,
	auditLogHandler *handler.AuditLogHandler,
	realtimeHandler *handler.RealtimeHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		bookingHandler:      bookingHandler,
		availabilityHandler: availabilityHandler,
		queueHandler:        queueHandler,
		auditLogHandler:     auditLogHandler,
		realtimeHandler:     realtimeHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Everything else requires an access token
	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Authenticate)

	// Bookings
	bookings := protected.PathPrefix("/bookings").Subrouter()
	bookings.Handle("/validate", patient(r.bookingHandler.ValidateBooking)).Methods(http.MethodPost)
	bookings.Handle("", patient(r.bookingHandler.CreateBooking)).Methods(http.MethodPost)
	bookings.Handle("", patientOrDoctor(r.bookingHandler.GetMyBookings)).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}", r.bookingHandler.GetBooking).Methods(http.MethodGet)
	bookings.Handle("/{id}/reschedule", patient(r.bookingHandler.RescheduleBooking)).Methods(http.MethodPost)
	bookings.Handle("/{id}/check-in", patient(r.bookingHandler.CheckIn)).Methods(http.MethodPost)
	bookings.Handle("/{id}/cancel", patientOrDoctor(r.bookingHandler.CancelBooking)).Methods(http.MethodPost)
	bookings.Handle("/{id}/accept", doctor(r.bookingHandler.AcceptBooking)).Methods(http.MethodPost)
	bookings.Handle("/{id}/reject", doctor(r.bookingHandler.RejectBooking)).Methods(http.MethodPost)
	bookings.Handle("/{id}/confirm", doctor(r.bookingHandler.ConfirmBooking)).Methods(http.MethodPost)
	bookings.Handle("/{id}/complete", doctor(r.bookingHandler.CompleteBooking)).Methods(http.MethodPost)
	bookings.Handle("/{id}/no-show", doctor(r.bookingHandler.MarkNoShow)).Methods(http.MethodPost)

	// Doctor directory (any authenticated role)
	doctors := protected.PathPrefix("/doctors/{doctorId}").Subrouter()
	doctors.HandleFunc("/slots", r.bookingHandler.GetAvailableSlots).Methods(http.MethodGet)
	doctors.HandleFunc("/availability", r.availabilityHandler.GetAvailability).Methods(http.MethodGet)
	doctors.HandleFunc("/status", r.queueHandler.GetDoctorStatus).Methods(http.MethodGet)

	// The calling doctor's own resources
	self := protected.PathPrefix("/doctor").Subrouter()
	self.Use(middleware.RequireDoctor)
	self.HandleFunc("/availability", r.availabilityHandler.ReplaceAvailability).Methods(http.MethodPut)
	self.HandleFunc("/status", r.queueHandler.UpdateDoctorStatus).Methods(http.MethodPut)
	self.HandleFunc("/queue/call-next", r.queueHandler.CallNext).Methods(http.MethodPost)

	// Queues
	protected.HandleFunc("/queues/{doctorId}", r.queueHandler.GetQueue).Methods(http.MethodGet)
	protected.Handle("/queues/{doctorId}/entries", patient(r.queueHandler.Enqueue)).Methods(http.MethodPost)
	protected.Handle("/queue-entries/{id}/complete", doctor(r.queueHandler.CompleteEntry)).Methods(http.MethodPost)
	protected.Handle("/queue-entries/{id}/no-show", doctor(r.queueHandler.NoShowEntry)).Methods(http.MethodPost)
	protected.Handle("/queue-entries/{id}/cancel", patient(r.queueHandler.CancelEntry)).Methods(http.MethodPost)

	// Live updates
	protected.Handle("/ws", patientOrDoctor(r.realtimeHandler.ServeWS)).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetEntityTrail).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func patient(h http.HandlerFunc) http.Handler {
	return middleware.RequirePatient(h)
}

func doctor(h http.HandlerFunc) http.Handler {
	return middleware.RequireDoctor(h)
}

func patientOrDoctor(h http.HandlerFunc) http.Handler {
	return middleware.RequirePatientOrDoctor(h)
}

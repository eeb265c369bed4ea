package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FolioWorksLab/foliosite/internal/content"
	"github.com/FolioWorksLab/foliosite/internal/storage"
)

const (
	bookingSectionName           = "bookingsection"
	errorValueMissingFields      = "missing_fields"
	errorValueNoRecipient        = "no_recipient_configured"
	errorValueNotificationFailed = "notification_failed"
	errorValueSaveFailed         = "save_failed"

	appointmentSentMessage    = "Appointment request sent."
	appointmentSubjectPattern = "New appointment request: %s"
)

// AppointmentHandlers records appointment submissions and notifies the site
// owner by email at the address stored in the contact section.
type AppointmentHandlers struct {
	sections          *storage.SectionStore
	emailSender       EmailSender
	fallbackRecipient string
	logger            *zap.Logger
}

func NewAppointmentHandlers(sections *storage.SectionStore, emailSender EmailSender, fallbackRecipient string, logger *zap.Logger) *AppointmentHandlers {
	return &AppointmentHandlers{
		sections:          sections,
		emailSender:       resolveEmailSender(emailSender),
		fallbackRecipient: strings.TrimSpace(fallbackRecipient),
		logger:            logger,
	}
}

type appointmentRequest struct {
	ProgramName string `json:"programName"`
	Duration    string `json:"duration"`
	Date        string `json:"date"`
	Contact     string `json:"contact"`
	Details     string `json:"details"`
}

type storedContactDetails struct {
	Email string `json:"email"`
}

// CreateAppointment appends the booking to the booking section and sends a
// formatted notification to the stored contact address.
func (handlers *AppointmentHandlers) CreateAppointment(context *gin.Context) {
	var payload appointmentRequest
	if bindErr := context.BindJSON(&payload); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueInvalidJSON})
		return
	}

	payload.ProgramName = strings.TrimSpace(payload.ProgramName)
	payload.Date = strings.TrimSpace(payload.Date)
	payload.Contact = strings.TrimSpace(payload.Contact)
	if payload.ProgramName == "" || payload.Date == "" || payload.Contact == "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueMissingFields})
		return
	}

	if saveErr := handlers.recordBooking(payload); saveErr != nil {
		handlers.logger.Warn("save_booking", zap.Error(saveErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueSaveFailed})
		return
	}

	recipient := handlers.notificationRecipient()
	if recipient == "" {
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueNoRecipient})
		return
	}

	subject := fmt.Sprintf(appointmentSubjectPattern, payload.ProgramName)
	messageBuilder := &strings.Builder{}
	_, _ = fmt.Fprintf(messageBuilder, "A new appointment was requested.\n\n")
	_, _ = fmt.Fprintf(messageBuilder, "Program: %s\n", payload.ProgramName)
	if payload.Duration != "" {
		_, _ = fmt.Fprintf(messageBuilder, "Duration: %s\n", payload.Duration)
	}
	_, _ = fmt.Fprintf(messageBuilder, "Date: %s\n", payload.Date)
	_, _ = fmt.Fprintf(messageBuilder, "Contact: %s\n", payload.Contact)
	if strings.TrimSpace(payload.Details) != "" {
		_, _ = fmt.Fprintf(messageBuilder, "Details:\n%s\n", strings.TrimSpace(payload.Details))
	}

	if sendErr := handlers.emailSender.SendEmail(context.Request.Context(), recipient, subject, messageBuilder.String()); sendErr != nil {
		handlers.logger.Warn("send_appointment_email", zap.String("recipient", recipient), zap.Error(sendErr))
		context.JSON(http.StatusBadGateway, gin.H{jsonKeySuccess: false, jsonKeyError: errorValueNotificationFailed})
		return
	}

	context.JSON(http.StatusOK, gin.H{jsonKeySuccess: true, jsonKeyMessage: appointmentSentMessage})
}

func (handlers *AppointmentHandlers) recordBooking(payload appointmentRequest) error {
	var bookings []map[string]any
	document, loadErr := handlers.sections.GetSection(bookingSectionName)
	switch {
	case loadErr == nil:
		if unmarshalErr := json.Unmarshal(document.Data, &bookings); unmarshalErr != nil {
			return unmarshalErr
		}
	case errors.Is(loadErr, storage.ErrSectionNotFound):
		// First booking creates the section.
	default:
		return loadErr
	}

	bookings = append(bookings, map[string]any{
		"id":          storage.NewID(),
		"programName": payload.ProgramName,
		"duration":    payload.Duration,
		"date":        payload.Date,
		"contact":     payload.Contact,
		"details":     payload.Details,
	})

	encoded, marshalErr := json.Marshal(bookings)
	if marshalErr != nil {
		return marshalErr
	}

	_, upsertErr := handlers.sections.UpsertSection(bookingSectionName, storage.SectionUpdate{Data: encoded})
	return upsertErr
}

// notificationRecipient prefers the contact section's stored email and falls
// back to the configured owner address.
func (handlers *AppointmentHandlers) notificationRecipient() string {
	document, loadErr := handlers.sections.GetSection(content.SectionContact)
	if loadErr == nil {
		var details storedContactDetails
		if unmarshalErr := json.Unmarshal(document.Data, &details); unmarshalErr == nil {
			if trimmed := strings.TrimSpace(details.Email); trimmed != "" {
				return trimmed
			}
		}
	}
	return handlers.fallbackRecipient
}

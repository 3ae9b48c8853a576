package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"github.com/turnitos/turnitos-backend/internal/booking"
	"github.com/turnitos/turnitos-backend/internal/business"
)

const sendTimeout = 10 * time.Second

// BookingNotifier emails the client and the business owner when a booking
// is created. It implements booking.Notifier.
type BookingNotifier struct {
	mailer     Mailer
	businesses business.Store
	logger     *zap.Logger
}

func NewBookingNotifier(mailer Mailer, businesses business.Store, logger *zap.Logger) *BookingNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingNotifier{mailer: mailer, businesses: businesses, logger: logger}
}

func (n *BookingNotifier) BookingCreated(ctx context.Context, appt *booking.Appointment) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	owner, err := n.businesses.GetBusiness(ctx, appt.BusinessID)
	if err != nil {
		n.logger.Warn("booking notification skipped: owner lookup failed",
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
		return
	}

	date := booking.FormatDate(appt.Date)
	start := booking.FormatMinute(appt.StartMinute)

	clientHTML := fmt.Sprintf(
		"<h2>Booking received</h2><p>Hi %s,</p><p>Your appointment has been registered:</p>"+
			"<ul><li><strong>Service:</strong> %s</li><li><strong>Date:</strong> %s</li>"+
			"<li><strong>Time:</strong> %s</li><li><strong>Business:</strong> %s</li></ul>",
		html.EscapeString(appt.ClientName), html.EscapeString(appt.ServiceName), date, start,
		html.EscapeString(owner.Name))
	if err := n.mailer.Send(ctx, appt.ClientName, appt.ClientEmail, "Booking confirmation", clientHTML); err != nil {
		n.logger.Warn("client booking email failed",
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
	}

	ownerHTML := fmt.Sprintf(
		"<h2>New booking</h2><ul><li><strong>Client:</strong> %s</li><li><strong>Phone:</strong> %s</li>"+
			"<li><strong>Service:</strong> %s</li><li><strong>Date:</strong> %s</li>"+
			"<li><strong>Time:</strong> %s</li></ul>",
		html.EscapeString(appt.ClientName), html.EscapeString(appt.ClientPhone),
		html.EscapeString(appt.ServiceName), date, start)
	if err := n.mailer.Send(ctx, owner.Name, owner.Email, "New booking received", ownerHTML); err != nil {
		n.logger.Warn("owner booking email failed",
			zap.String("appointment_id", appt.ID.String()), zap.Error(err))
	}
}

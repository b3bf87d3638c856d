package sendemail

import (
	"fmt"
	"log"
	"os"

	"garrison/pkg/transfers"
)

// TransferAlerts mails the operations desk when an urgent shipment is opened.
type TransferAlerts struct {
	email   EmailService
	opsDesk string
}

func NewTransferAlerts(email EmailService) *TransferAlerts {
	return &TransferAlerts{
		email:   email,
		opsDesk: os.Getenv("OPS_ALERT_EMAIL"),
	}
}

// UrgentTransfer sends the alert in the background; a mail failure must never
// fail the transfer request that triggered it.
func (a *TransferAlerts) UrgentTransfer(t transfers.Transfer) {
	if a.opsDesk == "" {
		return
	}

	go func() {
		subject := fmt.Sprintf("URGENT transfer %s: %s -> %s", t.TransferID, t.FromBase, t.ToBase)
		plain := fmt.Sprintf("Transfer %s (%d assets) was requested with URGENT priority.\nReason: %s\nScheduled: %s",
			t.TransferID, len(t.Assets), t.Reason, t.ScheduledDate.Format("2006-01-02 15:04"))
		html := fmt.Sprintf("<p>Transfer <strong>%s</strong> (%d assets) was requested with <strong>URGENT</strong> priority.</p><p>Reason: %s</p><p>Scheduled: %s</p>",
			t.TransferID, len(t.Assets), t.Reason, t.ScheduledDate.Format("2006-01-02 15:04"))

		if err := a.email.SendEmail(subject, a.opsDesk, plain, html); err != nil {
			log.Printf("urgent transfer alert for %s failed: %v", t.TransferID, err)
		}
	}()
}

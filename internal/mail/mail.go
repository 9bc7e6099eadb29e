// Package mail delivers generated RFQ documents by email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ErrNotConfigured is returned when no SMTP server has been configured.
var ErrNotConfigured = errors.New("email delivery is not configured")

// DefaultSubject is the subject line of DefaultMessage.
const DefaultSubject = "Your RFQ Document from RFQRocket"

// Message is one outgoing email with an optional file attachment.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DefaultMessage returns the stock delivery email for the document at
// attachmentPath, dated now.
func DefaultMessage(to, attachmentPath string, now time.Time) Message {
	body := fmt.Sprintf(`Dear Recipient,

Please find attached the Request for Quotation (RFQ) document generated from your source file.

Document: %s
Generated on: %s

If you have any questions or need further assistance, please don't hesitate to contact us.

Best regards,
The RFQRocket Team`, filepath.Base(attachmentPath), now.Format("January 02, 2006 at 15:04:05"))

	return Message{
		To:             to,
		Subject:        DefaultSubject,
		Body:           body,
		AttachmentPath: attachmentPath,
	}
}

package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/avdeenkov/cardbank/internal/config"
	"github.com/avdeenkov/cardbank/internal/models"
)

// EmailSender delivers owner notifications via SMTP. It implements
// service.Notifier.
type EmailSender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg *config.Config, logger *logrus.Logger) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		logger: logger,
	}
}

// TransferCompleted notifies the sender of a completed transfer.
func (s *EmailSender) TransferCompleted(owner *models.User, transfer *models.Transfer, fromMasked, toMasked string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{owner.Email}
	e.Subject = "Transfer Completed"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your transfer of %s from card %s to card %s has been completed.\n"+
			"Reference: %s\n"+
			"Transfer time: %s\n",
		owner.HolderName(), transfer.Amount, fromMasked, toMasked,
		transfer.Reference, transfer.TransferDate.Format("2006-01-02 15:04:05"),
	)
	body += "\nBest regards,\nCard Bank"
	e.Text = []byte(body)

	return s.send(e, owner.Email)
}

// BlockRequestDecided notifies a card owner that an administrator processed
// their block request.
func (s *EmailSender) BlockRequestDecided(owner *models.User, req *models.BlockRequest, maskedNumber string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{owner.Email}

	var processedAt time.Time
	if req.ProcessedAt != nil {
		processedAt = *req.ProcessedAt
	}
	comment := ""
	if req.AdminComment != nil {
		comment = *req.AdminComment
	}

	body := fmt.Sprintf("Dear %s,\n\n", owner.HolderName())
	if req.Status == models.BlockRequestApproved {
		e.Subject = "Card Block Request Approved"
		body += fmt.Sprintf(
			"Your request to block card %s has been approved and the card is now blocked.\n",
			maskedNumber,
		)
	} else {
		e.Subject = "Card Block Request Rejected"
		body += fmt.Sprintf(
			"Your request to block card %s has been rejected. The card remains usable.\n",
			maskedNumber,
		)
	}
	if comment != "" {
		body += fmt.Sprintf("Administrator comment: %s\n", comment)
	}
	body += fmt.Sprintf("Processed at: %s\n", processedAt.Format("2006-01-02 15:04:05"))
	body += "\nBest regards,\nCard Bank"
	e.Text = []byte(body)

	return s.send(e, owner.Email)
}

func (s *EmailSender) send(e *email.Email, to string) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

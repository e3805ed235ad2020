package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"discord-invite-tracker/internal/tracker"

	"go.uber.org/zap"
)

// EmailConfig is the SMTP endpoint for the monthly standings mail.
type EmailConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

// Email delivers the end-of-month standings as a plain-text mail.
type Email struct {
	cfg EmailConfig
	log *zap.Logger
}

func NewEmail(cfg EmailConfig, log *zap.Logger) *Email {
	if log == nil {
		log = zap.NewNop()
	}
	return &Email{cfg: cfg, log: log}
}

func (e *Email) Notify(ctx context.Context, report tracker.Report) error {
	if len(e.cfg.To) == 0 {
		return fmt.Errorf("email notify: no recipients configured")
	}

	msg := buildMessage(e.cfg.From, e.cfg.To, report)
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, e.cfg.From, e.cfg.To, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send standings mail: %w", err)
		}
		e.log.Info("standings mail sent",
			zap.String("guild_id", report.GuildID),
			zap.Int("recipients", len(e.cfg.To)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from string, to []string, report tracker.Report) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: Invite leaderboard final standings (%s)\r\n",
		report.GeneratedAt.Format("January 2006"))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Final standings for guild %s, generated %s.\r\n\r\n",
		report.GuildID, report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if len(report.Standings) == 0 {
		b.WriteString("No points were earned this month.\r\n")
	}
	for i, s := range report.Standings {
		fmt.Fprintf(&b, "%2d. %s - %d points\r\n", i+1, s.UserID, s.Points)
	}
	b.WriteString("\r\nAll points have been reset for the new month.\r\n")
	return []byte(b.String())
}

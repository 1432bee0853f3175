// Package smtp emails the run summary with the snapshot CSV attached.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"

	"go.uber.org/zap"

	"github.com/dealwatch/carwatch/internal/scrape"
	"github.com/dealwatch/carwatch/internal/snapshot"
)

// Config captures the SMTP connection and message parameters. The
// server is dialed over implicit TLS, so Port is typically 465.
type Config struct {
	Host       string
	Port       int
	Sender     string
	Password   string
	Recipients []string
}

// Notifier sends one email per run.
type Notifier struct {
	cfg    Config
	logger *zap.Logger

	// send is swapped out in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// New validates the config and returns a Notifier.
func New(cfg Config, logger *zap.Logger) (*Notifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("notify.smtp.host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("notify.smtp.port must be > 0")
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("notify.smtp.sender is required")
	}
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("notify.smtp.to must list at least one recipient")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{cfg: cfg, logger: logger, send: sendTLS}, nil
}

// Notify builds and sends the summary email.
func (n *Notifier) Notify(_ context.Context, snap scrape.Snapshot, summary scrape.Summary) error {
	msg, err := n.buildMessage(snap, summary)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Sender, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.Sender, n.cfg.Recipients, msg); err != nil {
		return fmt.Errorf("send summary email: %w", err)
	}
	n.logger.Info("summary email sent",
		zap.String("date", snap.Date),
		zap.Strings("to", n.cfg.Recipients),
	)
	return nil
}

// buildMessage renders a multipart/mixed email: a plain-text summary body
// plus the snapshot CSV as a base64 attachment.
func (n *Notifier) buildMessage(snap scrape.Snapshot, summary scrape.Summary) ([]byte, error) {
	csvData, err := snapshot.Encode(snap)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(n.cfg.Recipients, ", "))
	fmt.Fprintf(&buf, "Subject: Car listing snapshot %s\r\n", snap.Date)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	fmt.Fprintf(body, "Scrape run for %s finished.\r\n\r\n", snap.Date)
	fmt.Fprintf(body, "New:       %d\r\n", summary.New)
	fmt.Fprintf(body, "Updated:   %d\r\n", summary.Updated)
	fmt.Fprintf(body, "Unchanged: %d\r\n", summary.Unchanged)
	fmt.Fprintf(body, "Removed:   %d\r\n", summary.Removed)
	fmt.Fprintf(body, "Total:     %d\r\n", summary.Total)

	filename := snap.Date + ".csv"
	attachment, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/csv"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
	})
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}
	enc := base64.NewEncoder(base64.StdEncoding, attachment)
	if _, err := enc.Write(csvData); err != nil {
		return nil, fmt.Errorf("encode attachment: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish attachment: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish message: %w", err)
	}
	return buf.Bytes(), nil
}

// sendTLS delivers the message over an implicit-TLS connection.
func sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parse smtp address: %w", err)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return client.Quit()
}

package notify

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Encryption selects how the SMTP connection is secured.
type Encryption string

const (
	EncryptionAuto     Encryption = "auto"
	EncryptionNone     Encryption = "none"
	EncryptionSSL      Encryption = "ssl"
	EncryptionSTARTTLS Encryption = "starttls"
)

// ParseEncryption validates a configured encryption name.
func ParseEncryption(name string) (Encryption, error) {
	switch e := Encryption(strings.ToLower(strings.TrimSpace(name))); e {
	case "":
		return EncryptionAuto, nil
	case EncryptionAuto, EncryptionNone, EncryptionSSL, EncryptionSTARTTLS:
		return e, nil
	default:
		return "", fmt.Errorf("unsupported smtp encryption %q", name)
	}
}

// Resolve turns auto into a concrete mode: 465 is implicit TLS, 25 is plain,
// 587 and 2525 use STARTTLS, and any other port follows useTLS.
func (e Encryption) Resolve(port int, useTLS bool) Encryption {
	if e != EncryptionAuto && e != "" {
		return e
	}
	switch port {
	case 465:
		return EncryptionSSL
	case 25:
		return EncryptionNone
	case 587, 2525:
		return EncryptionSTARTTLS
	}
	if useTLS {
		return EncryptionSTARTTLS
	}
	return EncryptionNone
}

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Server     string
	Port       int
	Username   string
	Password   string
	From       string
	UseTLS     bool
	Encryption Encryption
	Timeout    time.Duration
}

func (c SMTPConfig) addr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

// loginName is the SMTP username, falling back to the sender address.
func (c SMTPConfig) loginName() string {
	if c.Username != "" {
		return c.Username
	}
	return c.From
}

// SMTPSender sends messages over SMTP.
type SMTPSender struct {
	cfg SMTPConfig
	log zerolog.Logger
}

// NewSMTPSender returns a sender for cfg.
func NewSMTPSender(cfg SMTPConfig, log zerolog.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{cfg: cfg, log: log}
}

// Send delivers msg to every recipient.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Server == "" || s.cfg.From == "" || len(msg.To) == 0 {
		return ErrIncompleteSettings
	}
	body, err := BuildMIME(s.cfg.From, msg, time.Now())
	if err != nil {
		return err
	}

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, to := range msg.To {
		if err := c.Rcpt(to); err != nil {
			return fmt.Errorf("rcpt to %s: %w", to, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}

	s.log.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("report mail sent")
	return nil
}

// Probe connects, negotiates encryption and logs in without sending.
func (s *SMTPSender) Probe(ctx context.Context) error {
	if s.cfg.Server == "" || s.cfg.From == "" {
		return ErrIncompleteSettings
	}
	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	return c.Quit()
}

func (s *SMTPSender) connect(ctx context.Context) (*smtp.Client, error) {
	mode := s.cfg.Encryption.Resolve(s.cfg.Port, s.cfg.UseTLS)
	tlsConfig := &tls.Config{ServerName: s.cfg.Server, MinVersion: tls.VersionTLS12}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var conn net.Conn
	var err error
	if mode == EncryptionSSL {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", s.cfg.addr())
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", s.cfg.addr())
	}
	if err != nil {
		return nil, fmt.Errorf("dial smtp %s: %w", s.cfg.addr(), err)
	}
	// The whole session shares the dial deadline.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Server)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}
	if err := c.Hello("localhost"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ehlo: %w", err)
	}
	if mode == EncryptionSTARTTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.Password != "" {
		plaintext := mode == EncryptionNone
		if plaintext {
			s.log.Warn().Str("server", s.cfg.addr()).Msg("smtp login without encryption")
		}
		auth := newLoginAuth(s.cfg.loginName(), s.cfg.Password, s.cfg.Server, plaintext)
		if err := c.Auth(auth); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("smtp login as %s: %w", s.cfg.loginName(), err)
		}
	}
	s.log.Debug().Str("server", s.cfg.addr()).Str("encryption", string(mode)).Msg("smtp session ready")
	return c, nil
}

// BuildMIME renders msg as a multipart/mixed message: the HTML body first,
// then each attachment base64 encoded.
func BuildMIME(from string, msg Message, now time.Time) ([]byte, error) {
	boundary, err := newBoundary()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, sanitizeHeader(v))
	}
	header("From", from)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.BEncoding.Encode("UTF-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": boundary}))
	buf.WriteString("\r\n")

	body := msg.HTMLBody
	contentType := "text/html; charset=utf-8"
	if body == "" {
		body = msg.TextBody
		contentType = "text/plain; charset=utf-8"
	}
	writePart(&buf, boundary, textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
	}, []byte(body))

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		writePart(&buf, boundary, textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Name})},
		}, a.Data)
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

func writePart(buf *bytes.Buffer, boundary string, h textproto.MIMEHeader, data []byte) {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	for _, k := range []string{"Content-Type", "Content-Transfer-Encoding", "Content-Disposition"} {
		if v := h.Get(k); v != "" {
			fmt.Fprintf(buf, "%s: %s\r\n", k, v)
		}
	}
	buf.WriteString("\r\n")
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	if encoded != "" {
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}
}

func newBoundary() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("mime boundary: %w", err)
	}
	return "dgwatch-" + hex.EncodeToString(b[:]), nil
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

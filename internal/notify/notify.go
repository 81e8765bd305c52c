// Package notify delivers the composed report by mail, either over SMTP or
// through the Mailgun API.
package notify

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/luckyjian/dgwatch/internal/alert"
)

// ErrIncompleteSettings is returned when the mail settings lack a server,
// sender or recipient.
var ErrIncompleteSettings = errors.New("incomplete mail settings")

// Attachment file names for the captured script outputs.
const (
	StandbyOutputName = "check_standby_output.txt"
	DailyOutputName   = "daily_report_output.txt"
)

// Notifier sends one report message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Attachment is a named in-memory file.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is a rendered report mail.
type Message struct {
	Subject     string
	Severity    alert.Severity
	HTMLBody    string
	TextBody    string
	To          []string
	Attachments []Attachment
}

// ParseRecipients splits a comma separated address list.
func ParseRecipients(csv string) []string {
	var out []string
	for _, addr := range strings.Split(csv, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// CollectAttachments gathers the report file and the non-empty script
// outputs. A missing report is skipped; the returned bool tells whether it
// was attached.
func CollectAttachments(fsys afero.Fs, reportPath, standbyOutput, dailyOutput string) ([]Attachment, bool) {
	var out []Attachment
	attached := false
	if reportPath != "" {
		if b, err := afero.ReadFile(fsys, reportPath); err == nil {
			out = append(out, Attachment{
				Name:        filepath.Base(reportPath),
				ContentType: "text/html; charset=utf-8",
				Data:        b,
			})
			attached = true
		}
	}
	if standbyOutput != "" {
		out = append(out, textAttachment(StandbyOutputName, standbyOutput))
	}
	if dailyOutput != "" {
		out = append(out, textAttachment(DailyOutputName, dailyOutput))
	}
	return out, attached
}

func textAttachment(name, content string) Attachment {
	return Attachment{Name: name, ContentType: "text/plain; charset=utf-8", Data: []byte(content)}
}

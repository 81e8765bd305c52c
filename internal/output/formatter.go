package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Success constructs a successful Response with the given command name and data payload.
func Success(command string, data any) Response {
	return Response{
		Success:   true,
		Timestamp: time.Now().UTC(),
		Command:   command,
		Data:      data,
	}
}

// Failure constructs a failed Response capturing the error message.
func Failure(command string, err error) Response {
	msg := err.Error()
	return Response{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Command:   command,
		Error:     &msg,
	}
}

// FormatResponse serializes a Response into the requested format string.
func FormatResponse(r Response, format Format) (string, error) {
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("json marshal: %w", err)
		}
		return string(b), nil
	case FormatYAML:
		b, err := yaml.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("yaml marshal: %w", err)
		}
		return string(b), nil
	case FormatTable:
		return formatTable(r)
	default:
		return "", fmt.Errorf("unsupported format: %q", format)
	}
}

// formatTable prints a status table, followed by the payload's own table
// when it implements Tabular.
func formatTable(r Response) (string, error) {
	status := "SUCCESS"
	if !r.Success {
		status = "FAILURE"
	}
	var sb strings.Builder
	if err := renderTable(&sb,
		[]string{"STATUS", "COMMAND", "TIMESTAMP"},
		[][]string{{status, r.Command, r.Timestamp.Format(time.RFC3339)}},
	); err != nil {
		return "", err
	}
	if r.Error != nil {
		fmt.Fprintf(&sb, "ERROR: %s\n", *r.Error)
	}
	if t, ok := r.Data.(Tabular); ok {
		if err := renderTable(&sb, t.Header(), t.Rows()); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func renderTable(sb *strings.Builder, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(sb)
	table.Header(toAny(header)...)
	for _, row := range rows {
		if err := table.Append(toAny(row)...); err != nil {
			return fmt.Errorf("table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

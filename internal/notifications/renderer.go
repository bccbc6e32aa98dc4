package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders notifications from templates.
type Renderer struct {
	templates map[MessageType]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":          titleCase,
		"join":           strings.Join,
		"formatTime":     formatTime,
		"formatDuration": formatDuration,
	}

	r := &Renderer{templates: make(map[MessageType]*template.Template)}

	for _, msg := range []MessageType{MessageTypeReported, MessageTypeUpdated, MessageTypeResolved} {
		filename := fmt.Sprintf("templates/%s.tmpl", msg)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(string(msg)).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", msg, err)
		}

		r.templates[msg] = tmpl
	}

	return r, nil
}

// Render renders a notification payload. Returns subject and body.
func (r *Renderer) Render(payload NotificationPayload) (subject, body string, err error) {
	tmpl, ok := r.templates[payload.MessageType]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", payload.MessageType)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", payload.MessageType, err)
	}

	return renderSubject(payload), strings.TrimSpace(buf.String()), nil
}

// renderSubject generates the notification subject line.
func renderSubject(payload NotificationPayload) string {
	var prefix string
	switch payload.MessageType {
	case MessageTypeReported:
		prefix = "Incident"
	case MessageTypeUpdated:
		prefix = "Update"
	case MessageTypeResolved:
		prefix = "Resolved"
	default:
		prefix = "Notification"
	}

	return fmt.Sprintf("[%s] %s: %s", prefix, payload.Page.Name, payload.Incident.Title)
}

// Template functions

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatTime(t any) string {
	switch v := t.(type) {
	case time.Time:
		return v.UTC().Format("Jan 2, 2006 15:04 UTC")
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format("Jan 2, 2006 15:04 UTC")
	default:
		return ""
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"text/template"

	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/reminders"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
	"github.com/yungbote/studyflow-backend/internal/platform/sendgrid"
)

var reminderSubjects = map[study.ReminderKind]*template.Template{
	study.ReminderTraining:  template.Must(template.New("subject").Parse(`Training day {{.TrainingDay}} is ready`)),
	study.ReminderPosttest1: template.Must(template.New("subject").Parse(`Your first follow-up test is ready`)),
}

var reminderBody = template.Must(template.New("body").Parse(`Hi {{.Name}},

{{if eq .Kind "training"}}Your training session for day {{.TrainingDay}} of 4 is open today. Please complete it before midnight so your schedule stays on track.{{else}}Training is finished. Your first follow-up test opens today.{{end}}

Log in at {{.AppURL}} to continue.

Thank you for taking part in the study.
`))

type reminderView struct {
	Name        string
	Kind        study.ReminderKind
	TrainingDay int
	AppURL      string
}

// RenderReminder builds the subject and plain-text body for r.
func RenderReminder(c reminders.Candidate, r reminders.Reminder, appURL string) (string, string, error) {
	subj, ok := reminderSubjects[r.Kind]
	if !ok {
		return "", "", fmt.Errorf("no template for reminder kind %q", r.Kind)
	}
	name := c.FirstName
	if name == "" {
		name = "there"
	}
	v := reminderView{Name: name, Kind: r.Kind, TrainingDay: r.TrainingDay, AppURL: appURL}

	var sb, bb bytes.Buffer
	if err := subj.Execute(&sb, v); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := reminderBody.Execute(&bb, v); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return sb.String(), bb.String(), nil
}

type emailNotifier struct {
	log    *logger.Logger
	mail   sendgrid.Client
	appURL string
}

// NewEmailNotifier sends reminders through SendGrid.
func NewEmailNotifier(log *logger.Logger, mail sendgrid.Client, appURL string) reminders.Notifier {
	return &emailNotifier{log: log.With("service", "EmailNotifier"), mail: mail, appURL: appURL}
}

func (n *emailNotifier) Notify(ctx context.Context, c reminders.Candidate, r reminders.Reminder) error {
	subject, body, err := RenderReminder(c, r, n.appURL)
	if err != nil {
		return err
	}
	res, err := n.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: c.Email, Name: c.FirstName}},
		Subject:    subject,
		Text:       body,
		Categories: []string{"study-reminder", string(r.Kind)},
		CustomArgs: map[string]string{
			"user_id":      c.UserID.String(),
			"training_day": strconv.Itoa(r.TrainingDay),
		},
	})
	if err != nil {
		return err
	}
	n.log.Debug("Reminder sent", "user_id", c.UserID, "kind", r.Kind, "message_id", res.MessageID)
	return nil
}

type logNotifier struct {
	log *logger.Logger
}

// NewLogNotifier records reminders in the log only. Used when no mail
// provider is configured.
func NewLogNotifier(log *logger.Logger) reminders.Notifier {
	return &logNotifier{log: log.With("service", "LogNotifier")}
}

func (n *logNotifier) Notify(_ context.Context, c reminders.Candidate, r reminders.Reminder) error {
	n.log.Info("Reminder (mail disabled)", "user_id", c.UserID, "kind", r.Kind, "training_day", r.TrainingDay)
	return nil
}

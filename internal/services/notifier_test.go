package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studyflow-backend/internal/domain/study"
	"github.com/yungbote/studyflow-backend/internal/modules/study/reminders"
	"github.com/yungbote/studyflow-backend/internal/platform/logger"
	"github.com/yungbote/studyflow-backend/internal/platform/sendgrid"
)

type fakeMail struct {
	sent []sendgrid.SendEmailRequest
	err  error
}

func (f *fakeMail) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	f.sent = append(f.sent, req)
	if f.err != nil {
		return nil, f.err
	}
	return &sendgrid.SendEmailResult{StatusCode: 202, MessageID: "m"}, nil
}

func TestRenderReminder(t *testing.T) {
	c := reminders.Candidate{UserID: uuid.New(), Email: "p@example.com", FirstName: "Pat"}

	subject, body, err := RenderReminder(c, reminders.Reminder{Kind: study.ReminderTraining, TrainingDay: 3}, "https://study.example.edu")
	if err != nil {
		t.Fatalf("RenderReminder(training): %v", err)
	}
	if subject != "Training day 3 is ready" || !strings.Contains(body, "day 3 of 4") || !strings.Contains(body, "Hi Pat") {
		t.Fatalf("training reminder: subject=%q body=%q", subject, body)
	}

	subject, body, err = RenderReminder(reminders.Candidate{}, reminders.Reminder{Kind: study.ReminderPosttest1}, "https://study.example.edu")
	if err != nil {
		t.Fatalf("RenderReminder(posttest1): %v", err)
	}
	if !strings.Contains(subject, "follow-up") || !strings.Contains(body, "Hi there") {
		t.Fatalf("posttest reminder: subject=%q body=%q", subject, body)
	}

	if _, _, err := RenderReminder(c, reminders.Reminder{Kind: "posttest3"}, ""); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestEmailNotifier(t *testing.T) {
	mail := &fakeMail{}
	n := NewEmailNotifier(logger.NewNop(), mail, "https://study.example.edu")
	c := reminders.Candidate{UserID: uuid.New(), Email: "p@example.com", FirstName: "Pat"}

	if err := n.Notify(context.Background(), c, reminders.Reminder{Kind: study.ReminderTraining, TrainingDay: 1}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0].To[0].Email != "p@example.com" || mail.sent[0].CustomArgs["user_id"] != c.UserID.String() {
		t.Fatalf("sent: %+v", mail.sent)
	}

	mail.err = errors.New("sendgrid http 503")
	if err := n.Notify(context.Background(), c, reminders.Reminder{Kind: study.ReminderTraining, TrainingDay: 2}); err == nil {
		t.Fatalf("expected provider error to propagate")
	}
}

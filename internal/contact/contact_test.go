package contact

import (
	"context"
	"errors"
	"testing"
	"time"

	"cognetex/api/internal/email"
	"cognetex/api/internal/store"
)

type fakeStore struct {
	insertFn func(ctx context.Context, inquiry store.ContactInquiry) (store.ContactInquiry, error)
}

func (f *fakeStore) InsertInquiry(ctx context.Context, inquiry store.ContactInquiry) (store.ContactInquiry, error) {
	return f.insertFn(ctx, inquiry)
}

type fakeNotifier struct {
	configured bool
	sendFn     func(to string, data email.InquiryData) error
}

func (f *fakeNotifier) IsConfigured() bool { return f.configured }

func (f *fakeNotifier) SendInquiryNotification(to string, data email.InquiryData) error {
	return f.sendFn(to, data)
}

func validInquiry() Inquiry {
	return Inquiry{
		Name:        "  Ada Lovelace ",
		Email:       "Ada <ada@example.com>",
		ProjectType: "AI Integration",
		Budget:      "$10k-$50k",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Inquiry)
		field  string
	}{
		{name: "short name", mutate: func(i *Inquiry) { i.Name = "A" }, field: "name"},
		{name: "bad email", mutate: func(i *Inquiry) { i.Email = "not-an-email" }, field: "email"},
		{name: "unknown project type", mutate: func(i *Inquiry) { i.ProjectType = "Logo Design" }, field: "projectType"},
		{name: "unknown budget", mutate: func(i *Inquiry) { i.Budget = "$1M" }, field: "budget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inquiry := validInquiry()
			tt.mutate(&inquiry)
			err := inquiry.Normalize().Validate()
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(validation.Fields) != 1 || validation.Fields[0].Field != tt.field {
				t.Fatalf("unexpected fields %+v", validation.Fields)
			}
		})
	}

	if err := validInquiry().Normalize().Validate(); err != nil {
		t.Fatalf("expected valid inquiry, got %v", err)
	}
}

func TestSubmitStoresAndNotifies(t *testing.T) {
	var stored store.ContactInquiry
	inquiries := &fakeStore{insertFn: func(ctx context.Context, inquiry store.ContactInquiry) (store.ContactInquiry, error) {
		stored = inquiry
		inquiry.CreatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		return inquiry, nil
	}}
	var sentTo string
	var sent email.InquiryData
	notifier := &fakeNotifier{configured: true, sendFn: func(to string, data email.InquiryData) error {
		sentTo, sent = to, data
		return nil
	}}

	receipt, err := NewService(inquiries, notifier, "owner@cognetex.test").Submit(context.Background(), validInquiry())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !receipt.Stored || !receipt.Notified || receipt.ID == "" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if stored.Name != "Ada Lovelace" || stored.Email != "ada@example.com" || stored.ID != receipt.ID {
		t.Fatalf("unexpected stored inquiry %+v", stored)
	}
	if sentTo != "owner@cognetex.test" || !sent.SubmittedAt.Equal(receipt.ReceivedAt) || receipt.ReceivedAt.Hour() != 9 {
		t.Fatalf("unexpected notification %q %+v", sentTo, sent)
	}
}

func TestSubmitRejectsInvalidWithoutWriting(t *testing.T) {
	inquiries := &fakeStore{insertFn: func(ctx context.Context, inquiry store.ContactInquiry) (store.ContactInquiry, error) {
		t.Fatal("invalid inquiry must not be stored")
		return inquiry, nil
	}}
	inquiry := validInquiry()
	inquiry.Budget = ""
	if _, err := NewService(inquiries, nil, "").Submit(context.Background(), inquiry); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSubmitStoreFailureFails(t *testing.T) {
	inquiries := &fakeStore{insertFn: func(ctx context.Context, inquiry store.ContactInquiry) (store.ContactInquiry, error) {
		return store.ContactInquiry{}, errors.New("db down")
	}}
	if _, err := NewService(inquiries, nil, "").Submit(context.Background(), validInquiry()); err == nil {
		t.Fatal("expected store error")
	}
}

func TestSubmitNotifyFailureIsNotFatal(t *testing.T) {
	notifier := &fakeNotifier{configured: true, sendFn: func(to string, data email.InquiryData) error {
		return errors.New("smtp down")
	}}
	receipt, err := NewService(nil, notifier, "owner@cognetex.test").Submit(context.Background(), validInquiry())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if receipt.Stored || receipt.Notified {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
}

func TestSubmitWithNothingConfiguredIsAccepted(t *testing.T) {
	notifier := &fakeNotifier{configured: false, sendFn: func(to string, data email.InquiryData) error {
		t.Fatal("unconfigured notifier must not be called")
		return nil
	}}
	receipt, err := NewService(nil, notifier, "owner@cognetex.test").Submit(context.Background(), validInquiry())
	if err != nil || receipt.ID == "" {
		t.Fatalf("expected accepted inquiry, got %+v %v", receipt, err)
	}
}

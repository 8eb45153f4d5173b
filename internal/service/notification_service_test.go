package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/queue"
	"github.com/courier-next/internal/repository"
)

var temporaryPasswordPattern = regexp.MustCompile(`Temporary password: (\S+)`)

func TestDeliverCredentialsAllowsTemporaryLogin(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.createParcel(t, admin, sender, "New.Receiver@Example.com")

	rows := env.outbox(t, "new.receiver@example.com", constants.NotificationCredentialsIssued)
	if len(rows) != 1 {
		t.Fatalf("credentials events = %d, want 1", len(rows))
	}
	event := rows[0]
	if event.SealedSecret == "" || strings.Contains(fmt.Sprint(event.Payload), "password") {
		t.Fatalf("secret must only be stored sealed: %+v", event)
	}

	if err := env.notifications.Deliver(context.Background(), event.ID); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("sent mails = %d, want 1", len(env.mailer.sent))
	}
	mail := env.mailer.sent[0]
	if mail.To != "new.receiver@example.com" {
		t.Fatalf("mail sent to %s", mail.To)
	}
	match := temporaryPasswordPattern.FindStringSubmatch(mail.Body)
	if len(match) != 2 {
		t.Fatalf("temporary password not found in body: %q", mail.Body)
	}

	result, err := env.auth.Login(context.Background(), "new.receiver@example.com", match[1])
	if err != nil {
		t.Fatalf("login with temporary password failed: %v", err)
	}
	if !result.MustChangePassword || result.Token == "" {
		t.Fatalf("temporary login should require a password change: %+v", result)
	}

	stored, err := env.outboxRepo.GetByID(event.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload event failed: %v", err)
	}
	if stored.Status != constants.NotificationEventStatusSent || stored.SealedSecret != "" || stored.Attempts != 1 {
		t.Fatalf("delivered event should be sealed off: %+v", stored)
	}

	// 已投递的事件重复消费不再发送
	if err := env.notifications.Deliver(context.Background(), event.ID); err != nil {
		t.Fatalf("redeliver failed: %v", err)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("redelivery must not send again, sent=%d", len(env.mailer.sent))
	}
}

func TestDeliverRendersTrackingLink(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	parcel := env.createParcel(t, admin, sender, "r@example.com")

	rows := env.outbox(t, sender.Email, constants.NotificationParcelCreated)
	if len(rows) != 1 {
		t.Fatalf("sender created events = %d, want 1", len(rows))
	}
	if err := env.notifications.Deliver(context.Background(), rows[0].ID); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	body := env.mailer.sent[0].Body
	if !strings.Contains(body, "https://courier.test/track/"+parcel.TrackingNumber) {
		t.Fatalf("body should link to the tracking page: %q", body)
	}
	if !strings.Contains(env.mailer.sent[0].Subject, parcel.TrackingNumber) {
		t.Fatalf("subject should carry the tracking number: %q", env.mailer.sent[0].Subject)
	}
}

func TestDeliverPermanentFailureSkipsEvent(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.createParcel(t, admin, sender, "r@example.com")
	env.mailer.err = fmt.Errorf("%w: bounce", ErrEmailRecipientRejected)

	event := env.outbox(t, sender.Email, constants.NotificationParcelCreated)[0]
	if err := env.notifications.Deliver(context.Background(), event.ID); err != nil {
		t.Fatalf("permanent failure should not be retried: %v", err)
	}
	stored, err := env.outboxRepo.GetByID(event.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload event failed: %v", err)
	}
	if stored.Status != constants.NotificationEventStatusSkipped || !strings.Contains(stored.LastError, "bounce") {
		t.Fatalf("event should be skipped: %+v", stored)
	}
}

func TestDeliverTransientFailureIsRetried(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.createParcel(t, admin, sender, "r@example.com")
	env.mailer.err = errors.New("smtp timeout")

	event := env.outbox(t, sender.Email, constants.NotificationParcelCreated)[0]
	for i := 0; i < 2; i++ {
		if err := env.notifications.Deliver(context.Background(), event.ID); err == nil {
			t.Fatalf("transient failure should surface for retry")
		}
	}
	stored, err := env.outboxRepo.GetByID(event.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload event failed: %v", err)
	}
	if stored.Status != constants.NotificationEventStatusQueued || stored.Attempts != 2 || stored.LastError != "smtp timeout" {
		t.Fatalf("unexpected event after failures: %+v", stored)
	}

	env.mailer.err = nil
	if err := env.notifications.Deliver(context.Background(), event.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	stored, _ = env.outboxRepo.GetByID(event.ID)
	if stored.Status != constants.NotificationEventStatusSent || stored.Attempts != 3 || stored.LastError != "" {
		t.Fatalf("unexpected event after retry: %+v", stored)
	}
}

func TestDeliverMissingEventIsIgnored(t *testing.T) {
	env := setupCourierTest(t)
	if err := env.notifications.Deliver(context.Background(), 4242); err != nil {
		t.Fatalf("missing event should be dropped: %v", err)
	}
}

func TestRelayPendingRequeuesStuckEvents(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.enqueuer.err = queue.ErrQueueDisabled
	env.createParcel(t, admin, sender, "r@example.com")

	pending, err := env.outboxRepo.List(repository.NotificationEventFilter{Status: constants.NotificationEventStatusPending})
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("pending events = %d, want 3", len(pending))
	}

	env.enqueuer.err = nil
	relayed, err := env.notifications.RelayPending(0, 10)
	if err != nil || relayed != 3 {
		t.Fatalf("relayed = %d err=%v, want 3", relayed, err)
	}
	if env.enqueuer.count() != 3 {
		t.Fatalf("enqueued = %d, want 3", env.enqueuer.count())
	}
	pending, _ = env.outboxRepo.List(repository.NotificationEventFilter{Status: constants.NotificationEventStatusPending})
	if len(pending) != 0 {
		t.Fatalf("relayed events should leave pending, %d left", len(pending))
	}

	relayed, err = env.notifications.RelayPending(0, 10)
	if err != nil || relayed != 0 {
		t.Fatalf("second relay = %d err=%v, want 0", relayed, err)
	}
}

func TestDeliverTamperedSecretIsSkipped(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.createParcel(t, admin, sender, "fresh@example.com")

	event := env.outbox(t, "fresh@example.com", constants.NotificationCredentialsIssued)[0]
	if err := env.db.Model(&models.NotificationEvent{}).Where("id = ?", event.ID).
		Update("sealed_secret", "dGFtcGVyZWQ=").Error; err != nil {
		t.Fatalf("tamper failed: %v", err)
	}
	if err := env.notifications.Deliver(context.Background(), event.ID); err != nil {
		t.Fatalf("tampered secret should be skipped, got %v", err)
	}
	if len(env.mailer.sent) != 0 {
		t.Fatalf("no mail should be sent for a tampered secret")
	}
	stored, _ := env.outboxRepo.GetByID(event.ID)
	if stored.Status != constants.NotificationEventStatusSkipped || stored.SealedSecret != "" {
		t.Fatalf("unexpected event: %+v", stored)
	}
}

func TestSecretSealerRoundTrip(t *testing.T) {
	sealer := newSecretSealer("k1")
	sealed, err := sealer.Seal("Abc12345")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if sealed == "Abc12345" {
		t.Fatalf("sealed value must differ from plaintext")
	}
	plain, err := sealer.Open(sealed)
	if err != nil || plain != "Abc12345" {
		t.Fatalf("open = %q err=%v", plain, err)
	}
	if _, err := newSecretSealer("k2").Open(sealed); !errors.Is(err, ErrNotificationSecretInvalid) {
		t.Fatalf("wrong key should fail, got %v", err)
	}
	if _, err := sealer.Open("not base64!"); !errors.Is(err, ErrNotificationSecretInvalid) {
		t.Fatalf("garbage should fail, got %v", err)
	}
}

func TestRecordRejectsEventsWithoutRecipient(t *testing.T) {
	env := setupCourierTest(t)
	err := env.notifications.Record(env.db, &models.NotificationEvent{EventType: constants.NotificationParcelStatus})
	if !errors.Is(err, ErrNotificationEventInvalid) {
		t.Fatalf("expected ErrNotificationEventInvalid, got %v", err)
	}
}

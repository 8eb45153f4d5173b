package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/models"

	"github.com/shopspring/decimal"
)

var trackingNumberPattern = regexp.MustCompile(`^PCL\d{6}[A-Z0-9]{6}$`)

func TestSubmitParcelRequestNotifiesEveryAdmin(t *testing.T) {
	env := setupCourierTest(t)
	env.createUser(t, "admin1@example.com", constants.RoleAdmin)
	env.createUser(t, "admin2@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)

	req := env.submit(t, sender, "Nobody@Example.com", 3)
	if req.Status != constants.RequestStatusPending {
		t.Fatalf("status = %s, want PENDING", req.Status)
	}
	if req.ReceiverEmail != "nobody@example.com" {
		t.Fatalf("receiver email not normalized: %s", req.ReceiverEmail)
	}
	if req.ReceiverName != "" {
		t.Fatalf("unknown receiver should have empty name, got %q", req.ReceiverName)
	}
	for _, admin := range []string{"admin1@example.com", "admin2@example.com"} {
		rows := env.outbox(t, admin, constants.NotificationNewRequest)
		if len(rows) != 1 {
			t.Fatalf("admin %s got %d new_request events, want 1", admin, len(rows))
		}
		if rows[0].Status != constants.NotificationEventStatusQueued {
			t.Fatalf("event should be queued after commit, got %s", rows[0].Status)
		}
	}
	if env.enqueuer.count() != 2 {
		t.Fatalf("enqueued %d tasks, want 2", env.enqueuer.count())
	}
}

func TestSubmitParcelRequestUsesExistingReceiverName(t *testing.T) {
	env := setupCourierTest(t)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.createUser(t, "carol@example.com", constants.RoleUser)

	req := env.submit(t, sender, "carol@example.com", 1)
	if req.ReceiverName != "carol" {
		t.Fatalf("receiver name = %q, want carol", req.ReceiverName)
	}
}

func TestSubmitParcelRequestRejectsInvalidReceivers(t *testing.T) {
	env := setupCourierTest(t)
	env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)

	base := SubmitParcelRequestInput{
		Description:         "books",
		Weight:              2,
		PickupLocation:      "A",
		DestinationLocation: "B",
	}

	self := base
	self.ReceiverEmail = " SENDER@example.com "
	if _, err := env.requests.Submit(context.Background(), sender, self); !errors.Is(err, ErrCannotSendToSelf) {
		t.Fatalf("expected ErrCannotSendToSelf, got %v", err)
	}

	admin := base
	admin.ReceiverEmail = "admin@example.com"
	if _, err := env.requests.Submit(context.Background(), sender, admin); !errors.Is(err, ErrReceiverIsAdmin) {
		t.Fatalf("expected ErrReceiverIsAdmin, got %v", err)
	}

	if _, err := env.requests.Submit(context.Background(), Caller{}, admin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSubmitParcelRequestValidatesWeight(t *testing.T) {
	env := setupCourierTest(t)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)

	for _, weight := range []float64{0, 0.1, 1000.01} {
		_, err := env.requests.Submit(context.Background(), sender, SubmitParcelRequestInput{
			ReceiverEmail:       "r@example.com",
			Description:         "books",
			Weight:              weight,
			PickupLocation:      "A",
			DestinationLocation: "B",
		})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("weight %v: expected ErrInvalidInput, got %v", weight, err)
		}
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Fields["weight"] == "" {
			t.Fatalf("weight %v: expected weight field error, got %v", weight, err)
		}
	}
}

func TestRejectParcelRequestNotifiesSender(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	req := env.submit(t, sender, "r@example.com", 2)

	decision, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{
		Status:     "rejected",
		AdminNotes: "address incomplete",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if decision.Request.Status != constants.RequestStatusRejected || decision.Parcel != nil {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if decision.Request.AdminNotes != "address incomplete" || decision.Request.ReviewedBy == nil {
		t.Fatalf("review fields not persisted: %+v", decision.Request)
	}
	if len(env.outbox(t, sender.Email, constants.NotificationRequestStatus)) != 1 {
		t.Fatalf("sender should receive one status event")
	}
	if len(env.outbox(t, sender.Email, constants.NotificationRequestRejected)) != 1 {
		t.Fatalf("sender should receive one rejection event")
	}
	if env.countParcelsForRequest(t, req.ID) != 0 {
		t.Fatalf("rejected request must not produce a parcel")
	}

	_, err = env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "APPROVED"})
	if !errors.Is(err, ErrRequestStatusInvalid) {
		t.Fatalf("approving a rejected request should fail, got %v", err)
	}
	_, err = env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "REJECTED"})
	if !errors.Is(err, ErrRequestStatusInvalid) {
		t.Fatalf("rejecting twice should fail, got %v", err)
	}
}

func TestSetRequestStatusGuards(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	req := env.submit(t, sender, "r@example.com", 2)

	if _, err := env.requests.SetStatus(context.Background(), sender, req.ID, SetRequestStatusInput{Status: "APPROVED"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin approval should be forbidden, got %v", err)
	}
	if _, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "PENDING"}); !errors.Is(err, ErrRequestStatusInvalid) {
		t.Fatalf("PENDING target should be rejected, got %v", err)
	}
	if _, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "SHIPPED"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status should be invalid input, got %v", err)
	}
	if _, err := env.requests.SetStatus(context.Background(), admin, 9999, SetRequestStatusInput{Status: "APPROVED"}); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("missing request should be not found, got %v", err)
	}
}

func TestApproveConvertsRequestIntoPricedParcel(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	env.createUser(t, "receiver@example.com", constants.RoleUser)
	req := env.submit(t, sender, "receiver@example.com", 3)

	decision, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "APPROVED"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	parcel := decision.Parcel
	if parcel == nil || !decision.ParcelCreated {
		t.Fatalf("approval should create a parcel: %+v", decision)
	}
	if parcel.Status != constants.ParcelStatusPickedUp {
		t.Fatalf("status = %s, want PICKED_UP", parcel.Status)
	}
	// 3kg 落在 (0,5] 档，单价 5
	if !parcel.Price.Decimal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("price = %s, want 15", parcel.Price.String())
	}
	if !trackingNumberPattern.MatchString(parcel.TrackingNumber) {
		t.Fatalf("tracking number %q does not match pattern", parcel.TrackingNumber)
	}
	if parcel.ParcelRequestID == nil || *parcel.ParcelRequestID != req.ID {
		t.Fatalf("parcel_request_id not linked: %v", parcel.ParcelRequestID)
	}
	if parcel.CurrentLocation != "A" || parcel.PickupLatitude != nil {
		t.Fatalf("geocode failure should keep raw pickup: %+v", parcel)
	}
	if decision.Request.Status != constants.RequestStatusApproved || decision.Request.ParcelID == nil || *decision.Request.ParcelID != parcel.ID {
		t.Fatalf("request not linked to parcel: %+v", decision.Request)
	}
	if len(env.outbox(t, sender.Email, constants.NotificationRequestStatus)) != 1 {
		t.Fatalf("sender should be told about the approval")
	}
	if len(env.outbox(t, sender.Email, constants.NotificationParcelCreated)) != 1 ||
		len(env.outbox(t, "receiver@example.com", constants.NotificationParcelCreated)) != 1 {
		t.Fatalf("sender and receiver should each get one parcel_created event")
	}
	if len(env.outbox(t, "receiver@example.com", constants.NotificationCredentialsIssued)) != 0 {
		t.Fatalf("existing receiver must not get credentials")
	}
}

func TestApproveProvisionsUnknownReceiverOnce(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	req := env.submit(t, sender, "newcomer@example.com", 4)

	before := time.Now()
	first, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "APPROVED"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	second, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "APPROVED"})
	if err != nil {
		t.Fatalf("repeated approve failed: %v", err)
	}
	if second.ParcelCreated || second.Parcel.ID != first.Parcel.ID {
		t.Fatalf("repeated approval should return the same parcel")
	}

	user, err := env.userRepo.GetByEmail("newcomer@example.com")
	if err != nil || user == nil {
		t.Fatalf("receiver not provisioned: %v", err)
	}
	if user.Role != constants.RoleUser || !user.Provisioned || user.PasswordHash != "" {
		t.Fatalf("unexpected provisioned user: %+v", user)
	}
	if user.TempPasswordExpiresAt == nil {
		t.Fatalf("temp password expiry missing")
	}
	expectedExpiry := before.Add(24 * time.Hour)
	if diff := user.TempPasswordExpiresAt.Sub(expectedExpiry); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("temp password expiry %v not within a minute of %v", user.TempPasswordExpiresAt, expectedExpiry)
	}
	if first.Parcel.ReceiverID != user.ID {
		t.Fatalf("parcel receiver = %d, want %d", first.Parcel.ReceiverID, user.ID)
	}

	creds := env.outbox(t, "newcomer@example.com", constants.NotificationCredentialsIssued)
	if len(creds) != 1 {
		t.Fatalf("credentials events = %d, want exactly 1", len(creds))
	}
	if creds[0].SealedSecret == "" {
		t.Fatalf("credentials event should carry a sealed secret")
	}
	if _, ok := creds[0].Payload["password"]; ok {
		t.Fatalf("payload must not contain the password")
	}
}

func TestConvertRequiresApprovedRequest(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	req := env.submit(t, sender, "r@example.com", 2)

	if _, _, err := env.conversion.Convert(context.Background(), admin, req.ID); !errors.Is(err, ErrRequestNotApproved) {
		t.Fatalf("expected ErrRequestNotApproved, got %v", err)
	}
	if _, _, err := env.conversion.Convert(context.Background(), admin, 4242); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	if _, _, err := env.conversion.Convert(context.Background(), sender, req.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	decision, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "APPROVED"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		parcel, created, err := env.conversion.Convert(context.Background(), admin, req.ID)
		if err != nil {
			t.Fatalf("convert #%d failed: %v", i, err)
		}
		if created || parcel.ID != decision.Parcel.ID {
			t.Fatalf("convert #%d should return the existing parcel", i)
		}
	}
	if n := env.countParcelsForRequest(t, req.ID); n != 1 {
		t.Fatalf("parcels for request = %d, want 1", n)
	}
}

func TestConcurrentApprovalCreatesSingleParcel(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	req := env.submit(t, sender, "racer@example.com", 6)

	const workers = 8
	var wg sync.WaitGroup
	parcels := make([]*models.Parcel, workers)
	created := make([]bool, workers)
	errs := make([]error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			decision, err := env.requests.SetStatus(context.Background(), admin, req.ID, SetRequestStatusInput{Status: "APPROVED"})
			if err != nil {
				errs[i] = err
				return
			}
			parcels[i] = decision.Parcel
			created[i] = decision.ParcelCreated
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if parcels[i] == nil || parcels[i].ID != parcels[0].ID {
			t.Fatalf("worker %d got a different parcel", i)
		}
		if created[i] {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("created flag set %d times, want 1", winners)
	}
	if n := env.countParcelsForRequest(t, req.ID); n != 1 {
		t.Fatalf("parcels for request = %d, want 1", n)
	}
	if n := len(env.outbox(t, "racer@example.com", constants.NotificationCredentialsIssued)); n != 1 {
		t.Fatalf("credentials events = %d, want 1", n)
	}
	if n := len(env.outbox(t, sender.Email, constants.NotificationParcelCreated)); n != 1 {
		t.Fatalf("parcel_created events for sender = %d, want 1", n)
	}
}

func TestDeleteParcelRequestRules(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	sender := env.createUser(t, "sender@example.com", constants.RoleUser)
	other := env.createUser(t, "other@example.com", constants.RoleUser)

	approved := env.submit(t, sender, "r@example.com", 2)
	if _, err := env.requests.SetStatus(context.Background(), admin, approved.ID, SetRequestStatusInput{Status: "APPROVED"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := env.requests.Delete(context.Background(), sender, approved.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("deleting an approved request should fail, got %v", err)
	}

	pending := env.submit(t, sender, "r@example.com", 2)
	if err := env.requests.Delete(context.Background(), other, pending.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner delete should be forbidden, got %v", err)
	}
	if err := env.requests.Delete(context.Background(), sender, pending.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := env.requests.Delete(context.Background(), sender, pending.ID); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}

	rows, total, err := env.requests.List(context.Background(), sender, RequestListInput{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != approved.ID {
		t.Fatalf("deleted request should be excluded, got total=%d rows=%v", total, rows)
	}
}

func TestListParcelRequestsScopesToSender(t *testing.T) {
	env := setupCourierTest(t)
	admin := env.createUser(t, "admin@example.com", constants.RoleAdmin)
	alice := env.createUser(t, "alice@example.com", constants.RoleUser)
	bob := env.createUser(t, "bob@example.com", constants.RoleUser)
	env.submit(t, alice, "r@example.com", 1)
	env.submit(t, alice, "r@example.com", 2)
	bobReq := env.submit(t, bob, "r@example.com", 3)

	_, total, err := env.requests.List(context.Background(), bob, RequestListInput{SenderID: alice.ID})
	if err != nil || total != 1 {
		t.Fatalf("bob should only see his own request, total=%d err=%v", total, err)
	}
	_, total, err = env.requests.List(context.Background(), admin, RequestListInput{})
	if err != nil || total != 3 {
		t.Fatalf("admin should see all requests, total=%d err=%v", total, err)
	}
	_, total, err = env.requests.List(context.Background(), admin, RequestListInput{SenderID: alice.ID, Status: "pending"})
	if err != nil || total != 2 {
		t.Fatalf("admin filter by sender, total=%d err=%v", total, err)
	}
	if _, _, err := env.requests.List(context.Background(), admin, RequestListInput{Status: "bogus"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("invalid status filter should fail, got %v", err)
	}

	if _, err := env.requests.Get(context.Background(), alice, bobReq.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("alice should not read bob's request, got %v", err)
	}
	if got, err := env.requests.Get(context.Background(), admin, bobReq.ID); err != nil || got.ID != bobReq.ID {
		t.Fatalf("admin get failed: %v", err)
	}
}

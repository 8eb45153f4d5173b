package service

import (
	"testing"

	"github.com/courier-next/internal/constants"
)

func TestCanTransitionParcel(t *testing.T) {
	allowed := map[[2]constants.ParcelStatus]bool{
		{constants.ParcelStatusPending, constants.ParcelStatusPickedUp}:    true,
		{constants.ParcelStatusPending, constants.ParcelStatusCancelled}:   true,
		{constants.ParcelStatusPickedUp, constants.ParcelStatusInTransit}:  true,
		{constants.ParcelStatusPickedUp, constants.ParcelStatusCancelled}:  true,
		{constants.ParcelStatusInTransit, constants.ParcelStatusDelivered}: true,
		{constants.ParcelStatusInTransit, constants.ParcelStatusCancelled}: true,
		{constants.ParcelStatusDelivered, constants.ParcelStatusReceived}:  true,
		// 同状态重入
		{constants.ParcelStatusPending, constants.ParcelStatusPending}:     true,
		{constants.ParcelStatusPickedUp, constants.ParcelStatusPickedUp}:   true,
		{constants.ParcelStatusInTransit, constants.ParcelStatusInTransit}: true,
		{constants.ParcelStatusDelivered, constants.ParcelStatusDelivered}: true,
	}

	for _, from := range constants.ParcelStatuses {
		for _, to := range constants.ParcelStatuses {
			want := allowed[[2]constants.ParcelStatus{from, to}]
			if got := canTransitionParcel(from, to); got != want {
				t.Fatalf("canTransitionParcel(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsParcelNoop(t *testing.T) {
	if !isParcelNoop(constants.ParcelStatusReceived, constants.ParcelStatusReceived) {
		t.Fatalf("received re-entry should be a noop")
	}
	if !isParcelNoop(constants.ParcelStatusCancelled, constants.ParcelStatusCancelled) {
		t.Fatalf("cancelled re-entry should be a noop")
	}
	if isParcelNoop(constants.ParcelStatusDelivered, constants.ParcelStatusDelivered) {
		t.Fatalf("delivered re-entry must re-apply side effects")
	}
	if isParcelNoop(constants.ParcelStatusCancelled, constants.ParcelStatusPending) {
		t.Fatalf("different statuses are never a noop")
	}
}

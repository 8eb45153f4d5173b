package repository

import (
	"testing"
	"time"

	"github.com/courier-next/internal/models"
)

func TestAuthzAuditLogListFilters(t *testing.T) {
	db := setupParcelRepositoryTest(t)
	repo := NewAuthzAuditLogRepository(db)

	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	entries := []models.AuthzAuditLog{
		{OperatorUserID: 1, OperatorEmail: "ops@courier.local", Action: "policy_grant", Role: "role:dispatcher", Object: "/admin/parcels", Method: "GET", RequestID: "req-a", CreatedAt: base},
		{OperatorUserID: 1, OperatorEmail: "ops@courier.local", Action: "policy_revoke", Role: "role:dispatcher", Object: "/admin/parcels", Method: "GET", RequestID: "req-b", CreatedAt: base.Add(time.Hour)},
		{OperatorUserID: 2, OperatorEmail: "root@courier.local", Action: "role_create", Role: "role:auditor", CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range entries {
		if err := repo.Create(&entries[i]); err != nil {
			t.Fatalf("create audit failed: %v", err)
		}
	}
	if err := repo.Create(nil); err != nil {
		t.Fatalf("nil entry should be ignored: %v", err)
	}

	cases := []struct {
		name   string
		filter AuthzAuditLogListFilter
		want   []string
	}{
		{name: "all newest first", filter: AuthzAuditLogListFilter{}, want: []string{"role_create", "policy_revoke", "policy_grant"}},
		{name: "role case insensitive", filter: AuthzAuditLogListFilter{Role: "ROLE:Dispatcher"}, want: []string{"policy_revoke", "policy_grant"}},
		{name: "method upper", filter: AuthzAuditLogListFilter{Method: "get", Action: "policy_grant"}, want: []string{"policy_grant"}},
		{name: "operator", filter: AuthzAuditLogListFilter{OperatorUserID: 2}, want: []string{"role_create"}},
		{name: "keyword request id", filter: AuthzAuditLogListFilter{Keyword: "req-b"}, want: []string{"policy_revoke"}},
		{name: "keyword email", filter: AuthzAuditLogListFilter{Keyword: "root@"}, want: []string{"role_create"}},
		{name: "time window", filter: AuthzAuditLogListFilter{CreatedFrom: ptrTime(base.Add(30 * time.Minute)), CreatedTo: ptrTime(base.Add(90 * time.Minute))}, want: []string{"policy_revoke"}},
		{name: "no match", filter: AuthzAuditLogListFilter{Object: "/admin/users"}, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, total, err := repo.List(tc.filter)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if int(total) != len(tc.want) || len(got) != len(tc.want) {
				t.Fatalf("total=%d len=%d want %d", total, len(got), len(tc.want))
			}
			for i, action := range tc.want {
				if got[i].Action != action {
					t.Fatalf("row %d action want %s got %s", i, action, got[i].Action)
				}
			}
		})
	}

	page, total, err := repo.List(AuthzAuditLogListFilter{Page: 2, PageSize: 2})
	if err != nil || total != 3 || len(page) != 1 || page[0].Action != "policy_grant" {
		t.Fatalf("second page = %+v total=%d err=%v", page, total, err)
	}
}

func ptrTime(v time.Time) *time.Time {
	return &v
}

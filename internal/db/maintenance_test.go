package db

import (
	"context"
	"testing"
)

func TestMaintain_Sqlite(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		ctx := context.Background()
		seedTags(t, s)
		if err := s.Maintain(ctx, MaintenanceOptions{}); err != nil {
			t.Fatalf("Maintain(sqlite) failed: %v", err)
		}
		// Make sure we can still use the DB after maintenance.
		if _, err := s.ListTags(ctx); err != nil {
			t.Fatalf("ListTags after maintenance failed: %v", err)
		}
	})
}

func TestMaintain_UnsupportedType(t *testing.T) {
	WithTestStore(t, func(s *BunStore) {
		bogus := &BunStore{bun: s.bun, dbType: "oracle"}
		if err := bogus.Maintain(context.Background(), MaintenanceOptions{}); err == nil {
			t.Fatalf("expected error for unsupported db type")
		}
	})
}

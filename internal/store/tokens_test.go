package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/knjigarna/internal/db"
)

func TestRevokeAndCheckToken(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Token should not be revoked initially.
	revoked, err := IsTokenRevoked(ctx, database, "test-jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected token not to be revoked")
	}

	if err := RevokeToken(ctx, database, "test-jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	revoked, err = IsTokenRevoked(ctx, database, "test-jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if !revoked {
		t.Error("expected token to be revoked")
	}

	// Different JTI should not be revoked.
	revoked, err = IsTokenRevoked(ctx, database, "test-jti-2")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected different token not to be revoked")
	}
}

func TestRevokeTokenIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := RevokeToken(ctx, database, "test-jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("first RevokeToken: %v", err)
	}
	if err := RevokeToken(ctx, database, "test-jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second RevokeToken: %v", err)
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	RevokeToken(ctx, database, "expired", time.Now().Add(-time.Hour))
	RevokeToken(ctx, database, "live", time.Now().Add(time.Hour))

	n, err := PurgeExpiredTokens(ctx, database)
	if err != nil {
		t.Fatalf("PurgeExpiredTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged token, got %d", n)
	}

	if revoked, _ := IsTokenRevoked(ctx, database, "live"); !revoked {
		t.Error("expected live revocation to survive purge")
	}
	if revoked, _ := IsTokenRevoked(ctx, database, "expired"); revoked {
		t.Error("expected expired revocation to be purged")
	}
}

package sessiontoken

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryRevokerExpires(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	if err := r.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := r.Revoke(ctx, "jti-2", 0); err != nil {
		t.Fatalf("revoke zero ttl: %v", err)
	}
	if ok, _ := r.IsRevoked(ctx, "jti-1"); !ok {
		t.Fatalf("expected jti-1 revoked")
	}
	if ok, _ := r.IsRevoked(ctx, "jti-2"); ok {
		t.Fatalf("zero ttl should not revoke")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := r.IsRevoked(ctx, "jti-1"); ok {
		t.Fatalf("expected revocation to lapse")
	}
}

func TestRedisRevoker(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisRevoker(mr.Addr(), "", "test")
	t.Cleanup(func() { _ = r.Close() })
	ctx := context.Background()

	if err := r.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !mr.Exists("test:revoked:jti-1") {
		t.Fatalf("expected revocation key in redis")
	}
	ok, err := r.IsRevoked(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected revoked, got %v %v", ok, err)
	}
	mr.FastForward(2 * time.Minute)
	ok, err = r.IsRevoked(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected expiry, got %v %v", ok, err)
	}
}

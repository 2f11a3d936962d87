package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

func TestNewClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient(context.Background(), logger.Nop(), Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer rdb.Close()
	if err := rdb.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestNewClientRequiresAddr(t *testing.T) {
	if _, err := NewClient(context.Background(), logger.Nop(), Options{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNewClientFailsOnUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := NewClient(context.Background(), logger.Nop(), Options{Addr: addr}); err == nil {
		t.Fatalf("expected ping error")
	}
}

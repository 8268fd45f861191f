package db

import (
	"context"
	"net/url"
	"testing"

	"github.com/yungbote/passage-migration/internal/data/repos/testutil"
	"github.com/yungbote/passage-migration/internal/platform/config"
)

func TestNewFromGormPingAndClose(t *testing.T) {
	svc, err := NewFromGorm(testutil.SQLite(t), testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewFromGorm: %v", err)
	}
	if err := svc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := svc.Ping(context.Background()); err == nil {
		t.Fatalf("Ping after Close: expected error")
	}
}

func TestNewFromGormNil(t *testing.T) {
	if _, err := NewFromGorm(nil, testutil.Logger(t)); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestNewPostgresServiceUnreachable(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     1,
		Database: "genaicoe_postgresql",
		User:     "u",
		Password: "p@ss/word",
		SSLMode:  "disable",
	}
	u, err := url.Parse(cfg.DSN())
	if err != nil {
		t.Fatalf("DSN parse: %v", err)
	}
	if pw, _ := u.User.Password(); pw != "p@ss/word" {
		t.Fatalf("password round trip: got=%q", pw)
	}
	if _, err := NewPostgresService(context.Background(), cfg, 2, testutil.Logger(t)); err == nil {
		t.Fatalf("expected connection error")
	}
}

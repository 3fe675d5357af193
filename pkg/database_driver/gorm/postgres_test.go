package gorm

import (
	"strings"
	"testing"
)

// TestConnectToPostgreSQLRequiresTarget tests the empty target guard
func TestConnectToPostgreSQLRequiresTarget(t *testing.T) {
	if _, err := ConnectToPostgreSQL("", "", "user", "pass", "", false); err == nil {
		t.Fatal("expected error for empty host, port and database")
	}
}

// TestDSNSSLMode tests sslmode selection
func TestDSNSSLMode(t *testing.T) {
	if got := dsn("db", "5432", "u", "p", "chat", true); !strings.Contains(got, "sslmode=require") {
		t.Errorf("expected sslmode=require, got %s", got)
	}
	if got := dsn("db", "5432", "u", "p", "chat", false); !strings.Contains(got, "sslmode=disable") {
		t.Errorf("expected sslmode=disable, got %s", got)
	}
}

package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alphadesk/tradedash/pkg/config"
)

func TestNewDisabled(t *testing.T) {
	db, err := New(&config.Config{})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Expected ErrDisabled, got %v", err)
	}
	if db != nil {
		t.Error("Expected nil DB when disabled")
	}

	// Close on nil must be safe
	db.Close()
}

func TestNewBadURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Enabled: true, URL: "::not a url::"}}

	if _, err := New(cfg); err == nil {
		t.Error("Expected error for malformed URL")
	}
}

func TestHealthCheck(t *testing.T) {
	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg := &config.Config{Database: config.DatabaseConfig{Enabled: true, URL: url, MaxConns: 2, MinConns: 1}}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}

	if status.MaxConns != 2 {
		t.Errorf("Expected MaxConns=2, got %d", status.MaxConns)
	}
}

package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:   "valid sqlite config",
			config: Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
		},
		{
			name:   "valid docstore config",
			config: Config{Backend: BackendDocStore, DataDir: "/tmp/data", Namespace: "ratings"},
		},
		{
			name:   "sqlite with empty DataDir is valid at config level",
			config: Config{Backend: BackendSQLite},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if got := c.GetDataDir(); got != "." {
		t.Errorf("GetDataDir() = %q, want \".\"", got)
	}
	if got := c.GetSQLiteFile(); got != DefaultSQLiteFile {
		t.Errorf("GetSQLiteFile() = %q, want %q", got, DefaultSQLiteFile)
	}
	if got := c.GetDocStoreFile(); got != "default.jsonl" {
		t.Errorf("GetDocStoreFile() = %q, want default.jsonl", got)
	}
	c.Namespace = "apps"
	if got := c.GetDocStoreFile(); got != "apps.jsonl" {
		t.Errorf("GetDocStoreFile() = %q, want apps.jsonl", got)
	}
}

package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/codervisor/devlog/types"
)

func TestNewProvider_SelectsBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		storageType types.StorageType
		wantGit     bool
	}{
		{types.StorageFile, false},
		{types.StorageSQLite, false},
		{types.StorageGitJSON, true},
		{types.StorageGitWithCache, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.storageType), func(t *testing.T) {
			cfg := types.StorageConfig{
				Type:     tt.storageType,
				RootDir:  filepath.Join(dir, string(tt.storageType)),
				Database: filepath.Join(dir, string(tt.storageType)+".db"),
			}
			p, err := NewProvider(cfg, "ws", false)
			if err != nil {
				t.Fatalf("NewProvider(%s) error: %v", tt.storageType, err)
			}
			if p.IsGitBased() != tt.wantGit {
				t.Errorf("IsGitBased() = %v, want %v", p.IsGitBased(), tt.wantGit)
			}
			if tt.wantGit {
				if _, ok := p.(GitProvider); !ok {
					t.Error("git-backed provider does not implement GitProvider")
				}
			}
			_ = p.Dispose()
		})
	}
}

func TestNewProvider_RejectsBadType(t *testing.T) {
	for _, typ := range []types.StorageType{"", "redis"} {
		_, err := NewProvider(types.StorageConfig{Type: typ}, "ws", false)
		var cfgErr *types.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("NewProvider(%q) error = %v, want ConfigError", typ, err)
		}
	}
}

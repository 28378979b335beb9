package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ipdata/ipdata/internal/models"
)

func TestNewSettings(t *testing.T) {
	s := NewSettings()

	if s.Credentials != nil {
		t.Error("expected no credential override by default")
	}
	if s.Upload.DestinationPath != "datasets" {
		t.Errorf("expected default DestinationPath to be datasets, got %s", s.Upload.DestinationPath)
	}
	if s.Upload.Target != "presigned" {
		t.Errorf("expected default Target to be presigned, got %s", s.Upload.Target)
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "settings")

	s := &Settings{
		Credentials: &models.StorageCredentials{
			AccessKeyID:     "AKIAEXAMPLE",
			SecretAccessKey: "secret/with+chars=",
			Region:          "eu-west-1",
			Bucket:          "datasets-bucket",
		},
		Upload: UploadSettings{
			DestinationPath: "uploads/2026",
			Target:          "direct",
		},
	}

	if err := SaveSettings(s, path); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("settings file was not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if loaded.Credentials == nil {
		t.Fatal("expected credentials to round-trip")
	}
	if *loaded.Credentials != *s.Credentials {
		t.Errorf("credentials mismatch: expected %+v, got %+v", *s.Credentials, *loaded.Credentials)
	}
	if loaded.Upload != s.Upload {
		t.Errorf("upload settings mismatch: expected %+v, got %+v", s.Upload, loaded.Upload)
	}
}

func TestSaveSettings_NoCredentialsSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings")

	if err := SaveSettings(NewSettings(), path); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.Credentials != nil {
		t.Errorf("expected nil credentials when none were saved, got %+v", loaded.Credentials)
	}
}

func TestLoadSettings_NonExistent(t *testing.T) {
	s, err := LoadSettings("/path/that/does/not/exist/settings")
	if err != nil {
		t.Fatalf("LoadSettings should not fail for non-existent file: %v", err)
	}
	if s.Upload.Target != "presigned" {
		t.Errorf("expected defaults for non-existent file")
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings")
	if err := os.WriteFile(path, []byte("[storage\nbroken"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for malformed INI")
	}
}

func TestValidTarget(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"direct", true},
		{"presigned", true},
		{"alternate:minio", true},
		{"alternate:", false},
		{"", false},
		{"s3", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := ValidTarget(tt.target); got != tt.want {
				t.Errorf("ValidTarget(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

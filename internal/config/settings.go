package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/ini.v1"

	"github.com/ipdata/ipdata/internal/models"
)

// Settings is the locally persisted state written by explicit "save" actions.
//
// INI format:
//
//	[storage]
//	access_key_id = AKIA...
//	secret_access_key = ...
//	region = us-east-1
//	bucket = my-datasets
//
//	[upload]
//	destination_path = datasets
//	target = presigned
//
// The file holds a secret, so it is written 0600 and replaced atomically.
type Settings struct {
	// Credentials is the saved override. Nil when no [storage] section exists,
	// which is how "never saved" is told apart from "saved with empty fields".
	Credentials *models.StorageCredentials

	Upload UploadSettings
}

// UploadSettings holds defaults for upload sessions started without flags.
type UploadSettings struct {
	// DestinationPath is the object key prefix. Default: "datasets"
	DestinationPath string `ini:"destination_path"`

	// Target is "direct", "presigned" or "alternate:<name>". Default: "presigned"
	Target string `ini:"target"`
}

// Validation errors
var (
	ErrInvalidTarget  = errors.New("upload target must be direct, presigned or alternate:<provider>")
	ErrWildcardInProd = errors.New("wildcard CORS origin is not allowed when IPDATA_ENV=production")
	ErrInvalidProxy   = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
)

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Upload: UploadSettings{
			DestinationPath: "datasets",
			Target:          "presigned",
		},
	}
}

// LoadSettings loads settings from an INI file.
// If the file doesn't exist, returns defaults and no error.
// If the file exists but is invalid, returns an error.
func LoadSettings(path string) (*Settings, error) {
	s := NewSettings()

	if path == "" {
		var err error
		path, err = DefaultSettingsPath()
		if err != nil {
			return s, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if iniFile.HasSection("storage") {
		sec := iniFile.Section("storage")
		s.Credentials = &models.StorageCredentials{
			AccessKeyID:     sec.Key("access_key_id").String(),
			SecretAccessKey: sec.Key("secret_access_key").String(),
			Region:          sec.Key("region").String(),
			Bucket:          sec.Key("bucket").String(),
		}
	}

	uploadSection := iniFile.Section("upload")
	s.Upload.DestinationPath = uploadSection.Key("destination_path").MustString(s.Upload.DestinationPath)
	s.Upload.Target = uploadSection.Key("target").MustString(s.Upload.Target)

	return s, nil
}

// SaveSettings writes settings to an INI file.
// Creates parent directories if they don't exist. The write goes to a temp
// file that is renamed over the target, so readers see either the old file
// or the new one, never a partial write.
func SaveSettings(s *Settings, path string) error {
	if path == "" {
		var err error
		path, err = DefaultSettingsPath()
		if err != nil {
			return fmt.Errorf("failed to determine settings path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	iniFile := ini.Empty()

	if s.Credentials != nil {
		storageSection, err := iniFile.NewSection("storage")
		if err != nil {
			return fmt.Errorf("failed to create storage section: %w", err)
		}
		storageSection.Key("access_key_id").SetValue(s.Credentials.AccessKeyID)
		storageSection.Key("secret_access_key").SetValue(s.Credentials.SecretAccessKey)
		storageSection.Key("region").SetValue(s.Credentials.Region)
		storageSection.Key("bucket").SetValue(s.Credentials.Bucket)
	}

	uploadSection, err := iniFile.NewSection("upload")
	if err != nil {
		return fmt.Errorf("failed to create upload section: %w", err)
	}
	uploadSection.Key("destination_path").SetValue(s.Upload.DestinationPath)
	uploadSection.Key("target").SetValue(s.Upload.Target)

	var buf bytes.Buffer
	if _, err := iniFile.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	// Secret access key lives here
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to set settings permissions: %w", err)
		}
	}

	return nil
}

// Validate checks the upload defaults.
func (s *Settings) Validate() error {
	if !ValidTarget(s.Upload.Target) {
		return ErrInvalidTarget
	}
	return nil
}

// ValidTarget reports whether t names an upload target.
func ValidTarget(t string) bool {
	switch {
	case t == "direct", t == "presigned":
		return true
	case strings.HasPrefix(t, "alternate:"):
		return strings.TrimPrefix(t, "alternate:") != ""
	default:
		return false
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dl.cfg")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write credentials: %v", err)
	}
	return path
}

func TestLoadCredentials_INISection(t *testing.T) {
	path := writeCredentials(t, "[AWS]\nAWS_ACCESS_KEY_ID=AKIAEXAMPLE\nAWS_SECRET_ACCESS_KEY='s3cr3t'\n")

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.AccessKeyID != "AKIAEXAMPLE" {
		t.Errorf("access key: got %q", creds.AccessKeyID)
	}
	if creds.SecretAccessKey != "s3cr3t" {
		t.Errorf("secret key: got %q", creds.SecretAccessKey)
	}
}

func TestLoadCredentials_DoesNotTouchEnvironment(t *testing.T) {
	t.Setenv(KeyAccessKeyID, "")
	path := writeCredentials(t, "AWS_ACCESS_KEY_ID=AKIAEXAMPLE\nAWS_SECRET_ACCESS_KEY=s3cr3t\n")

	if _, err := LoadCredentials(path); err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if v := os.Getenv(KeyAccessKeyID); v != "" {
		t.Errorf("environment was modified: %s=%q", KeyAccessKeyID, v)
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	if _, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.cfg")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := writeCredentials(t, "[AWS]\nAWS_ACCESS_KEY_ID=AKIAEXAMPLE\n")
	_, err := LoadCredentials(path)
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
	if !strings.Contains(err.Error(), KeySecretAccessKey) {
		t.Errorf("error should name the missing key: %v", err)
	}
}

func TestCredentials_StringRedacts(t *testing.T) {
	creds := Credentials{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "s3cr3t"}
	s := creds.String()
	if strings.Contains(s, "s3cr3t") || strings.Contains(s, "AKIAEXAMPLE") {
		t.Errorf("String leaked a secret: %s", s)
	}
	if (Credentials{}).String() != "Credentials{}" {
		t.Errorf("unexpected zero string %q", Credentials{}.String())
	}
}

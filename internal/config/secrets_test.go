package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetAPIToken_GeneratesAndPersists(t *testing.T) {
	t.Setenv(apiTokenEnvVar, "")
	s := fileSecrets{path: filepath.Join(t.TempDir(), "prepd", "secrets.json")}

	first, err := GetAPIToken(s)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 36 {
		t.Errorf("token = %q, want a uuid", first)
	}

	second, err := GetAPIToken(s)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if first != second {
		t.Errorf("token changed between calls: %q then %q", first, second)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		t.Fatalf("stat secrets file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("secrets file mode = %o, want 600", perm)
	}
}

func TestGetAPIToken_EnvWins(t *testing.T) {
	t.Setenv(apiTokenEnvVar, "from-env")
	s := fileSecrets{path: filepath.Join(t.TempDir(), "secrets.json")}

	tok, err := GetAPIToken(s)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if tok != "from-env" {
		t.Errorf("token = %q, want from-env", tok)
	}
	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		t.Error("env token must not be persisted")
	}
}

func TestGetAPIToken_CorruptFile(t *testing.T) {
	t.Setenv(apiTokenEnvVar, "")
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := GetAPIToken(fileSecrets{path: path}); err == nil {
		t.Fatal("expected error for corrupt secrets file")
	}
}

func TestFileSecrets_KeepsOtherEntries(t *testing.T) {
	s := fileSecrets{path: filepath.Join(t.TempDir(), "secrets.json")}

	if err := s.Set("other", "key", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(secretService, apiTokenKey, "tok"); err != nil {
		t.Fatal(err)
	}

	v, err := s.Get("other", "key")
	if err != nil || v != "v1" {
		t.Errorf("Get(other) = %q, %v", v, err)
	}
	if _, err := s.Get("missing", "key"); err == nil {
		t.Error("expected error for missing secret")
	}
}

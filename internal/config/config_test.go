package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{configDirEnvKey, trustProjectConfigEnvKey, apiURLEnvKey, dbPathEnvKey, filesPathEnvKey, allowedOriginsEnvKey} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" || cfg.FilesPath != "" {
		t.Fatalf("expected empty paths, got %q %q", cfg.DBPath, cfg.FilesPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Attachments.MaxUploadBytes != DefaultAttachmentMaxUploadBytes {
		t.Fatalf("expected max upload default %d, got %d", DefaultAttachmentMaxUploadBytes, cfg.Attachments.MaxUploadBytes)
	}
	if cfg.Attachments.UploadConcurrency != DefaultAttachmentUploadConcurrency {
		t.Fatalf("expected upload concurrency default %d, got %d", DefaultAttachmentUploadConcurrency, cfg.Attachments.UploadConcurrency)
	}
	if cfg.Attachments.DefaultFolder != "Home/Attachments" {
		t.Fatalf("expected default folder Home/Attachments, got %q", cfg.Attachments.DefaultFolder)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[attachments]
upload_concurrency = 2

[server]
allowed_origins = ["http://localhost:5173"]
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url override, got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level warn, got %q", cfg.LogLevel)
	}
	if cfg.Attachments.UploadConcurrency != 2 {
		t.Fatalf("expected upload_concurrency 2, got %d", cfg.Attachments.UploadConcurrency)
	}
	if diff := cmp.Diff([]string{"http://localhost:5173"}, cfg.Server.AllowedOrigins); diff != "" {
		t.Fatalf("allowed origins mismatch (-want +got):\n%s", diff)
	}
	if cfg.Attachments.MaxUploadBytes != DefaultAttachmentMaxUploadBytes {
		t.Fatal("expected untouched defaults to be preserved")
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.docattach.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatal("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range AllowedKeys() {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("project_prefix") {
		t.Fatal("expected project_prefix to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:    "http://test:1234",
		DBPath:    "/tmp/test.db",
		FilesPath: "/tmp/files",
		LogLevel:  "warn",
		Attachments: AttachmentConfig{
			MaxUploadBytes:     123,
			MultipartMaxMemory: 456,
			UploadConcurrency:  3,
			DefaultFolder:      "Home/Receipts",
		},
		Server: ServerConfig{AllowedOrigins: []string{"http://a", "http://b"}},
	}

	want := map[string]string{
		"api_url":                          "http://test:1234",
		"db_path":                          "/tmp/test.db",
		"files_path":                       "/tmp/files",
		"log_level":                        "warn",
		"attachments.max_upload_bytes":     "123",
		"attachments.multipart_max_memory": "456",
		"attachments.upload_concurrency":   "3",
		"attachments.default_folder":       "Home/Receipts",
		"server.allowed_origins":           "http://a,http://b",
	}
	for key, expected := range want {
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		if got != expected {
			t.Fatalf("get %s: expected %q, got %q", key, expected, got)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("api_url = \"http://keep\"\nlog_level = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := SetKey(path, "attachments.upload_concurrency", "8"); err != nil {
		t.Fatalf("set nested: %v", err)
	}
	if err := SetKey(path, "server.allowed_origins", "http://a, http://b"); err != nil {
		t.Fatalf("set origins: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected log_level error, got %q", cfg.LogLevel)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url, got %q", cfg.APIURL)
	}
	if cfg.Attachments.UploadConcurrency != 8 {
		t.Fatalf("expected upload_concurrency 8, got %d", cfg.Attachments.UploadConcurrency)
	}
	if diff := cmp.Diff([]string{"http://a", "http://b"}, cfg.Server.AllowedOrigins); diff != "" {
		t.Fatalf("allowed origins mismatch (-want +got):\n%s", diff)
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	cases := []struct {
		key   string
		value string
	}{
		{key: "invalid_key", value: "value"},
		{key: "log_level", value: "loud"},
		{key: "attachments.max_upload_bytes", value: "-1"},
		{key: "attachments.upload_concurrency", value: "100"},
	}
	for _, tc := range cases {
		if err := SetKey(path, tc.key, tc.value); err == nil {
			t.Fatalf("expected error for %s=%s", tc.key, tc.value)
		}
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	want := filepath.Join(dir, ConfigFileName)
	if globalPath != want || projectPath != want {
		t.Fatalf("unexpected paths: global=%s project=%s", globalPath, projectPath)
	}
}

func TestLoadDefaultsPathsToWorkingDirectory(t *testing.T) {
	clearEnv(t)
	workspace := t.TempDir()
	chdir(t, workspace)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// macOS temp dirs resolve through symlinks, so compare base names.
	if filepath.Base(cfg.DBPath) != DefaultDBFileName || filepath.Base(cfg.FilesPath) != DefaultFilesDirName {
		t.Fatalf("unexpected default paths: %q %q", cfg.DBPath, cfg.FilesPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(apiURLEnvKey, "http://example.com:8080")
	t.Setenv(dbPathEnvKey, "/tmp/override.db")
	t.Setenv(filesPathEnvKey, "/tmp/override-files")
	t.Setenv(allowedOriginsEnvKey, "http://a,http://b")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" || cfg.FilesPath != "/tmp/override-files" {
		t.Fatalf("expected env override for paths, got %q %q", cfg.DBPath, cfg.FilesPath)
	}
	if diff := cmp.Diff([]string{"http://a", "http://b"}, cfg.Server.AllowedOrigins); diff != "" {
		t.Fatalf("allowed origins mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNormalizesEmptyValues(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	chdir(t, t.TempDir())
	t.Setenv("HOME", homeDir)

	if err := os.WriteFile(filepath.Join(homeDir, ConfigFileName), []byte("log_level = \"\"\n[attachments]\nupload_concurrency = 99\ndefault_folder = \"/\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Attachments.UploadConcurrency != MaxUploadConcurrency {
		t.Fatalf("expected upload concurrency capped at %d, got %d", MaxUploadConcurrency, cfg.Attachments.UploadConcurrency)
	}
	if cfg.Attachments.DefaultFolder != DefaultAttachFolder {
		t.Fatalf("expected default folder, got %q", cfg.Attachments.DefaultFolder)
	}
}

func TestLoadProjectConfigTrust(t *testing.T) {
	cases := []struct {
		name      string
		trust     string
		wantURL   string
		wantTrust bool
	}{
		{name: "ignored by default", trust: "", wantURL: "http://home"},
		{name: "invalid value", trust: "maybe", wantURL: "http://home"},
		{name: "trusted", trust: "true", wantURL: "http://project", wantTrust: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			homeDir := t.TempDir()
			workspace := t.TempDir()
			if err := os.WriteFile(filepath.Join(homeDir, ConfigFileName), []byte("api_url = \"http://home\"\n"), 0o644); err != nil {
				t.Fatalf("write home config: %v", err)
			}
			if err := os.WriteFile(filepath.Join(workspace, ConfigFileName), []byte("api_url = \"http://project\"\n"), 0o644); err != nil {
				t.Fatalf("write project config: %v", err)
			}
			chdir(t, workspace)
			t.Setenv("HOME", homeDir)
			t.Setenv(trustProjectConfigEnvKey, tc.trust)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.APIURL != tc.wantURL {
				t.Fatalf("expected api_url %q, got %q", tc.wantURL, cfg.APIURL)
			}
			if (cfg.TrustedProjectConfigPath != "") != tc.wantTrust {
				t.Fatalf("unexpected trusted project path %q", cfg.TrustedProjectConfigPath)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
generation:
  max_chunk_length: 2000
  workers: 8
llm:
  api_key: "sk-test"
  timeout: 30s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Generation.MaxChunkLength != 2000 || cfg.Generation.Workers != 8 {
		t.Errorf("unexpected generation config: %+v", cfg.Generation)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("api key: got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("timeout: got %v", cfg.LLM.Timeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_secretsFromEnv(t *testing.T) {
	t.Setenv("RFQ_TEST_OPENAI", "sk-env")
	t.Setenv("RFQ_TEST_SMTP", "hunter2")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  api_key_env: RFQ_TEST_OPENAI
email:
  smtp_server: smtp.example.com
  password_env: RFQ_TEST_SMTP
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("api key: got %q", cfg.LLM.APIKey)
	}
	if cfg.Email.Password != "hunter2" {
		t.Errorf("smtp password: got %q", cfg.Email.Password)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/generations.db"
  processed_dir: "./processed"
watch:
  inbox: "./inbox"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "generations.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if want := filepath.Join(dir, "processed"); cfg.Storage.ProcessedDir != want {
		t.Errorf("processed_dir = %s, want %s", cfg.Storage.ProcessedDir, want)
	}
	if want := filepath.Join(dir, "inbox"); cfg.Watch.Inbox != want {
		t.Errorf("inbox = %s, want %s", cfg.Watch.Inbox, want)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 5000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes != 20*1024*1024 {
		t.Errorf("default max upload: got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Generation.MaxChunkLength != 5000 {
		t.Errorf("default max chunk length: got %d", cfg.Generation.MaxChunkLength)
	}
	if cfg.Generation.Workers != 4 {
		t.Errorf("default workers: got %d", cfg.Generation.Workers)
	}
	if cfg.Generation.Format != "docx" {
		t.Errorf("default format: got %s", cfg.Generation.Format)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0.2 || cfg.LLM.MaxTokens != 4000 {
		t.Errorf("default sampling: got %v / %d", cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	}
	if cfg.Email.SMTPPort != 587 {
		t.Errorf("default smtp port: got %d", cfg.Email.SMTPPort)
	}
	if len(cfg.Watch.Extensions) != 3 || cfg.Watch.Extensions[0] != ".pdf" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestLoad_zeroTemperatureKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  temperature: 0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0 {
		t.Errorf("temperature: got %v, want 0", cfg.LLM.Temperature)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}

package govconfig

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	env := map[string]string{
		"OCV_NETWORK":           "mainnet",
		"OCV_RELEASE_STAGE":     "production",
		"OCV_ARCHIVE_DB_URL":    "postgres://localhost/archive",
		"OCV_LEDGER_BUCKET":     "staking-ledgers",
		"OCV_LEDGER_ENDPOINT":   "s3.amazonaws.com",
		"OCV_LEDGER_ACCESS_KEY": "ak",
		"OCV_LEDGER_SECRET_KEY": "sk",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Errorf("BindAddr default: got %q", cfg.BindAddr)
	}
	if cfg.LedgerStorage != "/tmp/ocv-ledger-cache" {
		t.Errorf("LedgerStorage default: got %q", cfg.LedgerStorage)
	}
	if cfg.ReleaseStage != StageProduction {
		t.Errorf("ReleaseStage: got %q", cfg.ReleaseStage)
	}
	if !cfg.LedgerSecure {
		t.Errorf("LedgerSecure default: got false")
	}
	if cfg.DefaultEpoch != 0 {
		t.Errorf("DefaultEpoch default: got %d", cfg.DefaultEpoch)
	}
}

func TestFromEnvParsesDefaultEpoch(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OCV_LEDGER_DEFAULT_EPOCH", "42")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DefaultEpoch != 42 {
		t.Errorf("DefaultEpoch: got %d", cfg.DefaultEpoch)
	}
}

func TestFromEnvIgnoresInvalidDefaultEpoch(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OCV_LEDGER_DEFAULT_EPOCH", "not-a-number")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DefaultEpoch != 0 {
		t.Errorf("DefaultEpoch: got %d", cfg.DefaultEpoch)
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OCV_NETWORK", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for missing OCV_NETWORK")
	}
}

func TestFromEnvInvalidReleaseStage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OCV_RELEASE_STAGE", "bogus")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for invalid OCV_RELEASE_STAGE")
	}
}

func TestFromEnvDevelopStage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OCV_RELEASE_STAGE", "develop")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ReleaseStage != StageDevelop {
		t.Errorf("ReleaseStage: got %q", cfg.ReleaseStage)
	}
}

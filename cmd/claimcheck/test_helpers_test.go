package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"claimcheck/internal/config"
	"claimcheck/internal/testsupport"
)

const claimFactsReply = `{"Name": "Jane Doe", "Vehicle Info": "n/a", "Claim Status": "Pending", "Claim Date": "2024-01-10", "Reason": "Bicycle frame cracked", "Items Covered": "bicycle", "Claim ID": "CL 123 45"}`

type cliTestEnv struct {
	cfg        *config.Config
	oracle     *testsupport.FakeOracle
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	fake := testsupport.NewFakeOracle(t, func(req testsupport.OracleRequest) testsupport.OracleReply {
		if len(req.Images) > 0 {
			return testsupport.OracleReply{Content: `{"ObjectName": "bicycle", "AnalyzedImageDescription": "A bicycle", "MatchingPercentage": "88"}`}
		}
		return testsupport.OracleReply{Content: claimFactsReply}
	})
	cfg := testsupport.NewConfig(t, testsupport.WithOracleURL(fake.URL()))
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "claimcheck.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, oracle: fake, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "inputs", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir inputs: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

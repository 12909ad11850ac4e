package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	if realGot != filepath.Join(realTmpDir, defaultLogDirName) {
		t.Fatalf("unexpected log dir: got=%s", realGot)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Info("release-log-test")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "release-log-test") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestRedactNested(t *testing.T) {
	payload := map[string]interface{}{
		"access_token": "tok",
		"data": map[string]interface{}{
			"secret_key": "sec",
			"to_pincode": "560001",
			"shipments":  []interface{}{map[string]interface{}{"Password": "p", "name": "A"}},
		},
	}
	got := Redact(payload)
	if got["access_token"] != redactedValue {
		t.Fatalf("access_token want redacted got %v", got["access_token"])
	}
	data := got["data"].(map[string]interface{})
	if data["secret_key"] != redactedValue {
		t.Fatalf("secret_key want redacted got %v", data["secret_key"])
	}
	if data["to_pincode"] != "560001" {
		t.Fatalf("to_pincode should be kept, got %v", data["to_pincode"])
	}
	shipment := data["shipments"].([]interface{})[0].(map[string]interface{})
	if shipment["Password"] != redactedValue || shipment["name"] != "A" {
		t.Fatalf("unexpected shipment redaction: %v", shipment)
	}
	if payload["access_token"] != "tok" {
		t.Fatalf("original payload must not be mutated")
	}
}

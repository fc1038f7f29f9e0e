package notifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"easemyday/internal/models"
)

func newTestFilesystemNotifier(t *testing.T) (*FilesystemNotifier, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "notifications")
	config := models.FilesystemNotifierConfiguration{
		Directory: dir,
	}
	n := NewFilesystemNotifier(config)
	return n, dir
}

func resetArgs() map[string]string {
	return map[string]string{
		"WebURL":    "http://localhost:3000",
		"ActionURL": "http://localhost:8080/auth/action?mode=resetPassword&oobCode=abc.def",
		"ExpiresIn": "60 minutes",
	}
}

func TestFilesystemNotifyFromTemplate_WritesFile(t *testing.T) {
	n, dir := newTestFilesystemNotifier(t)

	err := n.NotifyFromTemplate("user@example.com", "Reset your password", TemplatePasswordReset, resetArgs())
	if err != nil {
		t.Fatalf("NotifyFromTemplate failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file, got %d", len(entries))
	}
	if !strings.HasSuffix(entries[0].Name(), "_password_reset.json") {
		t.Errorf("unexpected file name %s", entries[0].Name())
	}

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}

	var result map[string]any
	if err = json.Unmarshal(content, &result); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}

	if result["to"] != "user@example.com" {
		t.Errorf("expected to=user@example.com, got %v", result["to"])
	}
	if result["template_name"] != TemplatePasswordReset {
		t.Errorf("expected template_name=password_reset, got %v", result["template_name"])
	}
	body, _ := result["body"].(string)
	if !strings.Contains(body, "mode=resetPassword&amp;oobCode=abc.def") {
		t.Errorf("expected the action link in the rendered body, got %q", body)
	}
	if result["timestamp"] == nil || result["timestamp"] == "" {
		t.Error("expected non-empty timestamp")
	}
}

func TestFilesystemNotifyFromTemplate_UnknownTemplate(t *testing.T) {
	n, dir := newTestFilesystemNotifier(t)

	if err := n.NotifyFromTemplate("user@example.com", "?", "does_not_exist", nil); err == nil {
		t.Fatal("expected an error for an unknown template")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no file, got %d", len(entries))
	}
}

func TestFilesystemNotifyFromTemplate_MultipleNotifications(t *testing.T) {
	n, dir := newTestFilesystemNotifier(t)

	for i := range 3 {
		err := n.NotifyFromTemplate("user@example.com", "Reset your password", TemplatePasswordReset, resetArgs())
		if err != nil {
			t.Fatalf("NotifyFromTemplate call %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read directory: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 files, got %d", len(entries))
	}
}

func TestFilesystemNotifier_DirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deep", "notifications")
	config := models.FilesystemNotifierConfiguration{
		Directory: dir,
	}

	_ = NewFilesystemNotifier(config)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected a directory")
	}
}

func TestRenderTemplates(t *testing.T) {
	for _, name := range []string{TemplateVerifyEmail, TemplatePasswordReset, TemplatePasswordChanged} {
		body, err := Render(name, map[string]string{"WebURL": "http://localhost:3000", "Name": "Ada"})
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		if !strings.Contains(body, "http://localhost:3000") {
			t.Errorf("%s does not mention the web url", name)
		}
	}
}

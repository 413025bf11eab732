package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"goveeremote/internal/dispatch"
	"goveeremote/internal/infrastructure/logging"
	"goveeremote/internal/infrastructure/mqtt"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GOVEEREMOTE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingAPIKey verifies run fails validation without a Govee key.
func TestRun_MissingAPIKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
govee:
  api_key: ""

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"

logging:
  level: error
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("GOVEEREMOTE_CONFIG", configPath)
	t.Setenv("GOVEE_API_KEY", "")
	t.Setenv("GOVEEREMOTE_GOVEE_API_KEY", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without an API key")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("GOVEEREMOTE_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %s, want %s", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("GOVEEREMOTE_CONFIG", "/etc/goveeremote/config.yaml")
		if got := getConfigPath(); got != "/etc/goveeremote/config.yaml" {
			t.Errorf("getConfigPath() = %s, want /etc/goveeremote/config.yaml", got)
		}
	})
}

type recordingSink struct {
	ids chan string
}

func (s *recordingSink) Dispatch(_ context.Context, commandID string) dispatch.Outcome {
	s.ids <- commandID
	return dispatch.Outcome{CommandID: commandID, Status: dispatch.StatusOK}
}

func TestMQTTCommandHandler(t *testing.T) {
	topics := mqtt.Topics{}
	log := logging.Default()

	t.Run("dispatches the command from the topic", func(t *testing.T) {
		sink := &recordingSink{ids: make(chan string, 1)}
		handler := mqttCommandHandler(context.Background(), topics, sink, log)

		if err := handler("goveeremote/command/KITCHEN_KETTLE_ON/set", nil); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		select {
		case id := <-sink.ids:
			if id != "KITCHEN_KETTLE_ON" {
				t.Errorf("dispatched %q, want KITCHEN_KETTLE_ON", id)
			}
		case <-time.After(time.Second):
			t.Fatal("command was never dispatched")
		}
	})

	t.Run("rejects topics of the wrong shape", func(t *testing.T) {
		sink := &recordingSink{ids: make(chan string, 1)}
		handler := mqttCommandHandler(context.Background(), topics, sink, log)

		if err := handler("goveeremote/device/AA:11/state", nil); err == nil {
			t.Error("handler should reject a non-command topic")
		}
		select {
		case id := <-sink.ids:
			t.Errorf("unexpected dispatch of %q", id)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestAvailabilityPayload(t *testing.T) {
	if got := string(availabilityPayload(true)); got != "online" {
		t.Errorf("availabilityPayload(true) = %q, want online", got)
	}
	if got := string(availabilityPayload(false)); got != "offline" {
		t.Errorf("availabilityPayload(false) = %q, want offline", got)
	}
}

package messaging

import (
	"errors"
	"testing"

	"show-service/internal/logger"
	"show-service/internal/types"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(nil, logger.LogLevelError)
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in    string
		name  string
		delay int
	}{
		{"start", "start", 0},
		{"start:1500", "start", 1500},
		{"start:-500", "start", -500},
		{" stop ", "stop", 0},
		{"pause", "pause", 0},
		{"restart", "restart", 0},
	}
	for _, c := range cases {
		name, delay, err := ParseCommand(c.in)
		if err != nil {
			t.Errorf("ParseCommand(%q) failed: %v", c.in, err)
			continue
		}
		if name != c.name || delay != c.delay {
			t.Errorf("ParseCommand(%q) = %s, %d; want %s, %d", c.in, name, delay, c.name, c.delay)
		}
	}

	for _, in := range []string{"", "land", "start:soon", "stop:1"} {
		if _, _, err := ParseCommand(in); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("ParseCommand(%q) should fail with ErrInvalidCommand, got %v", in, err)
		}
	}
}

func TestHandleShowCommandDispatch(t *testing.T) {
	var started []int
	stops, pauses, restarts := 0, 0, 0
	r := NewRedisClient("127.0.0.1", 6379, testLogger(), Callbacks{})
	r.SetCallbacks(Callbacks{
		StartCallback:   func(d int) error { started = append(started, d); return nil },
		StopCallback:    func() error { stops++; return nil },
		PauseCallback:   func() error { pauses++; return nil },
		RestartCallback: func() error { restarts++; return nil },
	})

	for _, cmd := range []string{"start:-200", "stop", "pause", "restart", "start"} {
		if err := r.handleShowCommand(cmd); err != nil {
			t.Fatalf("handleShowCommand(%q) failed: %v", cmd, err)
		}
	}
	if len(started) != 2 || started[0] != -200 || started[1] != 0 {
		t.Errorf("unexpected start delays %v", started)
	}
	if stops != 1 || pauses != 1 || restarts != 1 {
		t.Errorf("unexpected counts stop=%d pause=%d restart=%d", stops, pauses, restarts)
	}

	if err := r.handleShowCommand("fly"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestPublishColorKeepsLatest(t *testing.T) {
	r := NewRedisClient("127.0.0.1", 6379, testLogger(), Callbacks{})

	for i := 0; i < 5; i++ {
		if err := r.PublishColor(types.LedColor{R: uint8(i)}); err != nil {
			t.Fatalf("PublishColor failed: %v", err)
		}
	}
	if len(r.colors) != 1 {
		t.Fatalf("expected one pending color, got %d", len(r.colors))
	}
	if c := <-r.colors; c.R != 4 {
		t.Errorf("expected latest color, got %v", c)
	}
}

func TestPublishStateOutboxFull(t *testing.T) {
	r := NewRedisClient("127.0.0.1", 6379, testLogger(), Callbacks{})

	for i := 0; i < outboxSize; i++ {
		if err := r.PublishState(types.StateIdle); err != nil {
			t.Fatalf("PublishState %d failed: %v", i, err)
		}
	}
	if err := r.PublishState(types.StateLanding); !errors.Is(err, ErrOutboxFull) {
		t.Errorf("expected ErrOutboxFull, got %v", err)
	}
}

func TestSettingsUpdateDispatch(t *testing.T) {
	var keys []string
	r := NewRedisClient("127.0.0.1", 6379, testLogger(), Callbacks{
		SettingsCallback: func(key string) error {
			keys = append(keys, key)
			return errors.New("unknown setting")
		},
	})

	// callback errors are logged, never handed back to the subscription
	if err := r.handleSettings("show.enabled"); err != nil {
		t.Errorf("handleSettings returned %v", err)
	}
	if len(keys) != 1 || keys[0] != "show.enabled" {
		t.Errorf("unexpected settings keys %v", keys)
	}
}

func TestUnconnectedClient(t *testing.T) {
	r := NewRedisClient("127.0.0.1", 6379, testLogger(), Callbacks{})
	if err := r.StartListening(); err == nil {
		t.Error("StartListening must fail before Connect")
	}
	if _, err := r.GetHashField("settings", "show.enabled"); err == nil {
		t.Error("GetHashField must fail before Connect")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

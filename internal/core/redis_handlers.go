package core

import (
	"fmt"
	"strconv"
	"strings"

	"show-service/internal/messaging"
)

const settingsHash = "show"

var settingFields = []string{"enabled", "testing", "takeoff-time", "landing-height"}

// AttachMessaging wires the command and settings link, applies the settings
// currently stored in Redis and starts listening.
func (s *ShowSystem) AttachMessaging(m MessagingClient) error {
	s.settings = m
	m.SetCallbacks(messaging.Callbacks{
		StartCallback:    s.handleStartRequest,
		StopCallback:     s.handleStopRequest,
		PauseCallback:    s.handlePauseRequest,
		RestartCallback:  s.handleRestartRequest,
		SettingsCallback: s.handleSettingsUpdate,
	})

	for _, field := range settingFields {
		if err := s.loadSetting(field); err != nil {
			s.logger.Warnf("Failed to load setting %s: %v", field, err)
		}
	}

	if err := m.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}
	return nil
}

func (s *ShowSystem) handleStartRequest(delayMs int) error {
	s.logger.Debugf("Handling start request: delay=%dms", delayMs)
	return s.RequestStart(delayMs)
}

func (s *ShowSystem) handleStopRequest() error {
	s.logger.Debugf("Handling stop request")
	s.RequestStop()
	return nil
}

func (s *ShowSystem) handlePauseRequest() error {
	s.logger.Debugf("Handling pause request")
	s.RequestPause()
	return nil
}

func (s *ShowSystem) handleRestartRequest() error {
	s.logger.Debugf("Handling restart request")
	s.RequestRestart()
	return nil
}

// handleSettingsUpdate reloads a setting announced as "show.<field>".
// Settings of other services are ignored.
func (s *ShowSystem) handleSettingsUpdate(key string) error {
	field, ok := strings.CutPrefix(key, settingsHash+".")
	if !ok {
		return nil
	}
	return s.loadSetting(field)
}

func (s *ShowSystem) loadSetting(field string) error {
	if s.settings == nil {
		return nil
	}
	value, err := s.settings.GetHashField(settingsHash, field)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	return s.applySetting(field, value)
}

// applySetting stores a single show parameter. Values are taken as they
// are; range checks are up to the writer.
func (s *ShowSystem) applySetting(field, value string) error {
	switch field {
	case "enabled", "testing":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", field, value, err)
		}
		if field == "enabled" {
			s.SetEnabled(b)
		} else {
			s.SetTesting(b)
		}
		s.logger.Infof("Setting %s = %v", field, b)

	case "takeoff-time", "landing-height":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", field, value, err)
		}
		if field == "takeoff-time" {
			s.SetTrajectoryOffset(f)
		} else {
			s.SetLandingHeight(f)
		}
		s.logger.Infof("Setting %s = %.2f", field, f)

	default:
		s.logger.Debugf("Ignoring unknown setting %s", field)
	}
	return nil
}

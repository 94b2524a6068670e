package hardware

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"show-service/internal/config"
	"show-service/internal/logger"
)

// iioRoot is replaced in tests
var iioRoot = IIODevicesDir

func ReadAdcValue(device string, channel int) (int, error) {
	path := filepath.Join(iioRoot, device, fmt.Sprintf("in_voltage%d_raw", channel))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return -1, fmt.Errorf("ADC sysfs not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed reading %s: %w", path, err)
	}

	var value int
	_, err = fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &value)
	if err != nil {
		return -1, fmt.Errorf("failed parsing ADC value: %w", err)
	}

	return value, nil
}

// AdcBattery samples the battery voltage from an IIO ADC channel in the
// background; BatteryVoltage returns the last sample without blocking.
type AdcBattery struct {
	cfg     config.BatteryConfig
	logger  *logger.Logger
	voltage atomic.Uint64 // math.Float64bits
	failing atomic.Bool
}

// NewAdcBattery creates a monitor that reports +Inf until the first
// successful sample, so a missing reading never triggers a low battery abort.
func NewAdcBattery(cfg config.BatteryConfig, l *logger.Logger) *AdcBattery {
	b := &AdcBattery{cfg: cfg, logger: l}
	b.voltage.Store(math.Float64bits(math.Inf(1)))
	return b
}

// Sample reads the ADC once. On failure the previous value is kept.
func (b *AdcBattery) Sample() error {
	raw, err := ReadAdcValue(b.cfg.Device, b.cfg.Channel)
	if err != nil {
		return err
	}
	b.voltage.Store(math.Float64bits(float64(raw) * b.cfg.Scale))
	return nil
}

// Run samples at the configured interval until ctx is done.
func (b *AdcBattery) Run(ctx context.Context) {
	interval := b.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.sampleAndLog()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sampleAndLog()
		}
	}
}

func (b *AdcBattery) sampleAndLog() {
	err := b.Sample()
	if err != nil && !b.failing.Swap(true) {
		b.logger.Warnf("Battery voltage unavailable: %v", err)
	} else if err == nil && b.failing.Swap(false) {
		b.logger.Infof("Battery voltage readable again")
	}
}

func (b *AdcBattery) BatteryVoltage() float64 {
	return math.Float64frombits(b.voltage.Load())
}

func (b *AdcBattery) CriticalLowVoltage() float64 {
	return b.cfg.CriticalLowVoltage
}

package hardware

import (
	"fmt"
	"sync"
	"time"

	"show-service/internal/config"
	"show-service/internal/logger"
	"show-service/internal/types"

	"github.com/warthog618/go-gpiocdev"
)

// Line is a requested GPIO output line
type Line interface {
	SetValue(value int) error
	Close() error
}

// GpioRgbLed drives a status LED with one on/off GPIO line per channel. A
// channel is lit when its value reaches the configured threshold. The siren
// effect flashes the red line.
type GpioRgbLed struct {
	cfg    config.LedConfig
	logger *logger.Logger
	chip   *gpiocdev.Chip

	mu        sync.Mutex
	lines     [ledCount]Line
	values    [ledCount]int
	effect    types.LedEffect
	color     types.LedColor
	sirenStop chan struct{}
	sirenDone chan struct{}
}

func NewGpioRgbLed(cfg config.LedConfig, l *logger.Logger) *GpioRgbLed {
	return &GpioRgbLed{
		cfg:    cfg,
		logger: l,
		values: [ledCount]int{-1, -1, -1},
	}
}

// newGpioRgbLedWithLines creates a LED on already requested lines
func newGpioRgbLedWithLines(cfg config.LedConfig, l *logger.Logger, lines [ledCount]Line) *GpioRgbLed {
	g := NewGpioRgbLed(cfg, l)
	g.lines = lines
	return g
}

// Initialize requests the three output lines, all off.
func (g *GpioRgbLed) Initialize() error {
	chipName := fmt.Sprintf("gpiochip%d", g.cfg.Chip)
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %d: %w", g.cfg.Chip, err)
	}
	g.chip = chip

	offsets := [ledCount]int{g.cfg.Red, g.cfg.Green, g.cfg.Blue}
	for i, offset := range offsets {
		line, err := chip.RequestLine(offset,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer(Consumer))
		if err != nil {
			g.Close()
			return fmt.Errorf("failed to request GPIO line %d for %s: %w", offset, ledNames[i], err)
		}
		g.mu.Lock()
		g.lines[i] = line
		g.values[i] = 0
		g.mu.Unlock()
		g.logger.Infof("Configured LED %s: chip=%d, line=%d", ledNames[i], g.cfg.Chip, offset)
	}
	return nil
}

func (g *GpioRgbLed) SetEffect(effect types.LedEffect) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if effect == g.effect {
		return
	}
	g.logger.Debugf("LED effect %s -> %s", g.effect, effect)
	g.effect = effect

	g.stopSirenLocked()
	switch effect {
	case types.EffectSolid:
		g.applyColorLocked()
	case types.EffectSiren:
		g.writeLocked(ledGreen, 0)
		g.writeLocked(ledBlue, 0)
		g.sirenStop = make(chan struct{})
		g.sirenDone = make(chan struct{})
		go g.runSiren(g.sirenStop, g.sirenDone)
	default:
		for i := 0; i < ledCount; i++ {
			g.writeLocked(i, 0)
		}
	}
}

// SetColor stores the color; it is only shown with the solid effect.
func (g *GpioRgbLed) SetColor(color types.LedColor) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.color = color
	if g.effect == types.EffectSolid {
		g.applyColorLocked()
	}
}

func (g *GpioRgbLed) applyColorLocked() {
	channels := [ledCount]uint8{g.color.R, g.color.G, g.color.B}
	for i, v := range channels {
		on := 0
		if v > 0 && v >= g.cfg.Threshold {
			on = 1
		}
		g.writeLocked(i, on)
	}
}

func (g *GpioRgbLed) writeLocked(idx, value int) {
	if g.values[idx] == value || g.lines[idx] == nil {
		return
	}
	if err := g.lines[idx].SetValue(value); err != nil {
		g.logger.Warnf("Failed to set LED %s: %v", ledNames[idx], err)
		return
	}
	g.values[idx] = value
}

func (g *GpioRgbLed) runSiren(stop, done chan struct{}) {
	defer close(done)

	period := g.cfg.SirenPeriod
	if period <= 0 {
		period = 250 * time.Millisecond
	}

	// Trigger first flash immediately
	on := 1
	g.mu.Lock()
	g.writeLocked(ledRed, on)
	g.mu.Unlock()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			on ^= 1
			g.mu.Lock()
			g.writeLocked(ledRed, on)
			g.mu.Unlock()
		}
	}
}

// stopSirenLocked stops the siren goroutine. The lock is released while
// waiting for it since the goroutine takes the lock to write.
func (g *GpioRgbLed) stopSirenLocked() {
	if g.sirenStop == nil {
		return
	}
	stop, done := g.sirenStop, g.sirenDone
	g.sirenStop, g.sirenDone = nil, nil
	close(stop)
	g.mu.Unlock()
	<-done
	g.mu.Lock()
}

func (g *GpioRgbLed) Close() {
	g.mu.Lock()
	g.stopSirenLocked()
	for i, line := range g.lines {
		if line == nil {
			continue
		}
		g.writeLocked(i, 0)
		line.Close()
		g.lines[i] = nil
	}
	g.mu.Unlock()

	if g.chip != nil {
		g.chip.Close()
		g.chip = nil
	}
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"show-service/internal/logger"
	"show-service/internal/types"

	ipc "github.com/librescoot/redis-ipc"
	"github.com/redis/go-redis/v9"
)

const (
	FlightHash        = "flight"
	FlightChannel     = "flight"
	FlightCommandList = "flight:command"

	telemetryRefreshInterval = time.Second
)

// Telemetry is the flight controller state mirrored from the flight hash.
type Telemetry struct {
	Preflight          types.PreflightStatus
	TrajectoryFinished bool
	// Ack is the sequence number of the last command the controller executed
	Ack                uint64
	Tumbled            bool
	CanFly             bool
	BatteryVoltage     float64
	CriticalLowVoltage float64
	GcsActive          bool
	GcsColor           types.LedColor
	ProgramColor       types.LedColor
}

// ParseTelemetry decodes the fields of the flight hash. Missing or invalid
// fields keep the values from base.
func ParseTelemetry(base Telemetry, fields map[string]string) Telemetry {
	t := base
	if v, ok := fields["preflight"]; ok {
		t.Preflight = types.ParsePreflightStatus(v)
	}
	parseBool := func(key string, dst *bool) {
		if v, ok := fields[key]; ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	parseFloat := func(key string, dst *float64) {
		if v, ok := fields[key]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	parseBool("trajectory-finished", &t.TrajectoryFinished)
	parseBool("tumbled", &t.Tumbled)
	parseBool("can-fly", &t.CanFly)
	parseFloat("battery-voltage", &t.BatteryVoltage)
	parseFloat("battery-critical", &t.CriticalLowVoltage)

	if v, ok := fields["ack"]; ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			t.Ack = n
		}
	}
	if v, ok := fields["gcs-light"]; ok {
		if c, err := types.ParseLedColor(v); err == nil {
			t.GcsActive, t.GcsColor = true, c
		} else {
			t.GcsActive, t.GcsColor = false, types.Black
		}
	}
	if v, ok := fields["light-program"]; ok {
		if c, err := types.ParseLedColor(v); err == nil {
			t.ProgramColor = c
		}
	}
	return t
}

// ParseTelemetrySnapshot decodes a full read of the flight hash. Unlike
// ParseTelemetry, a missing gcs-light field releases the override.
func ParseTelemetrySnapshot(base Telemetry, fields map[string]string) Telemetry {
	t := ParseTelemetry(base, fields)
	if _, ok := fields["gcs-light"]; !ok {
		t.GcsActive, t.GcsColor = false, types.Black
	}
	return t
}

// FlightBridge talks to the flight controller process over Redis. Queries
// are answered from cached telemetry, commands are queued and pushed to
// the flight:command list by a writer goroutine, so no call blocks. The
// controller publishes changed field names on the flight channel; the whole
// hash is also reread every second.
//
// Commands are encoded as "<seq>:<verb>[:<arg>...]". Motion commands are
// only considered finished once the controller acknowledged their sequence
// number.
type FlightBridge struct {
	client  *ipc.Client
	watcher *ipc.HashWatcher
	logger  *logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	outbox chan string
	seq    atomic.Uint64

	mu        sync.RWMutex
	telemetry Telemetry
	motionSeq uint64
}

// NewFlightBridge creates a bridge; criticalLow is used until the controller
// reports its own threshold.
func NewFlightBridge(client *ipc.Client, l *logger.Logger, criticalLow float64) *FlightBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &FlightBridge{
		client: client,
		logger: l,
		ctx:    ctx,
		cancel: cancel,
		outbox: make(chan string, outboxSize),
		telemetry: Telemetry{
			BatteryVoltage:     math.Inf(1),
			CriticalLowVoltage: criticalLow,
		},
	}
}

// Start subscribes to field updates, loads the telemetry once and starts
// the refresh loop and the command writer.
func (b *FlightBridge) Start() error {
	b.watcher = b.client.NewHashWatcherWithChannel(FlightHash, FlightChannel).
		OnAny(func(field, value string) error {
			b.Apply(map[string]string{field: value})
			return nil
		})
	if err := b.watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch flight telemetry: %w", err)
	}
	if err := b.refresh(); err != nil {
		return fmt.Errorf("failed to read flight telemetry: %w", err)
	}

	b.wg.Add(2)
	go b.refreshLoop()
	go b.commandWriter()
	return nil
}

func (b *FlightBridge) refresh() error {
	fields, err := b.watcher.FetchAll()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	b.ApplySnapshot(fields)
	return nil
}

// Apply merges updated telemetry fields into the cache.
func (b *FlightBridge) Apply(fields map[string]string) {
	b.mu.Lock()
	b.telemetry = ParseTelemetry(b.telemetry, fields)
	b.mu.Unlock()
}

// ApplySnapshot replaces the cache from a full read of the flight hash.
func (b *FlightBridge) ApplySnapshot(fields map[string]string) {
	b.mu.Lock()
	b.telemetry = ParseTelemetrySnapshot(b.telemetry, fields)
	b.mu.Unlock()
}

func (b *FlightBridge) refreshLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(telemetryRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if err := b.refresh(); err != nil {
				b.logger.Warnf("Failed to refresh flight telemetry: %v", err)
			}
		}
	}
}

func (b *FlightBridge) commandWriter() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case cmd := <-b.outbox:
			b.logger.Debugf("Sending flight command %s", cmd)
			if err := ipc.SendRequest(b.client, FlightCommandList, cmd); err != nil {
				b.logger.Errorf("Failed to send flight command %s: %v", cmd, err)
			}
		}
	}
}

func (b *FlightBridge) Close() {
	b.cancel()
	if b.watcher != nil {
		if err := b.watcher.Stop(); err != nil {
			b.logger.Debugf("Failed to stop flight watcher: %v", err)
		}
	}
	b.wg.Wait()
}

func (b *FlightBridge) send(motion bool, format string, args ...interface{}) error {
	seq := b.seq.Add(1)
	cmd := strconv.FormatUint(seq, 10) + ":" + fmt.Sprintf(format, args...)
	select {
	case b.outbox <- cmd:
	default:
		return fmt.Errorf("flight command %q dropped: %w", cmd, ErrOutboxFull)
	}
	if motion {
		b.mu.Lock()
		b.motionSeq = seq
		b.mu.Unlock()
	}
	return nil
}

func (b *FlightBridge) sendOrLog(format string, args ...interface{}) {
	if err := b.send(false, format, args...); err != nil {
		b.logger.Warnf("%v", err)
	}
}

func (b *FlightBridge) snapshot() Telemetry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.telemetry
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// Preflight

func (b *FlightBridge) SetEnabled(enabled bool) {
	b.sendOrLog("preflight:%s", onOff(enabled))
}

func (b *FlightBridge) Summary() types.Verdict {
	return b.snapshot().Preflight.Summary()
}

func (b *FlightBridge) Check(c types.PreflightCheck) types.Verdict {
	return b.snapshot().Preflight.Get(c)
}

func (b *FlightBridge) IsPassing(c types.PreflightCheck) bool {
	return b.Check(c) == types.VerdictPass
}

func (b *FlightBridge) ResetPositionFilterToHome() {
	b.sendOrLog("filter-reset")
}

// Commander

func (b *FlightBridge) SetHighLevelEnabled(enabled bool) {
	b.sendOrLog("hl:%s", onOff(enabled))
}

func (b *FlightBridge) TakeoffRelative(height, velocity float64) error {
	return b.send(true, "takeoff:%.3f:%.3f", height, velocity)
}

func (b *FlightBridge) StartTrajectoryWithOffset(offsetSeconds float64) error {
	return b.send(true, "trajectory:%.3f", offsetSeconds)
}

func (b *FlightBridge) Land(height, velocity float64) error {
	return b.send(true, "land:%.3f:%.3f", height, velocity)
}

func (b *FlightBridge) Stop() {
	b.sendOrLog("stop")
}

// IsTrajectoryFinished reports the controller's flag once it has caught up
// with the last motion command.
func (b *FlightBridge) IsTrajectoryFinished() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.telemetry.TrajectoryFinished && b.telemetry.Ack >= b.motionSeq
}

// Light program

// LightProgramPlayer returns the light program view of the bridge.
func (b *FlightBridge) LightProgramPlayer() *LightProgramPlayer {
	return &LightProgramPlayer{bridge: b}
}

type LightProgramPlayer struct {
	bridge *FlightBridge
}

func (p *LightProgramPlayer) SchedulePlayFrom(start uint64, programID int, timescale float64) {
	p.bridge.sendOrLog("lights:play:%d:%d:%g", start, programID, timescale)
}

func (p *LightProgramPlayer) Stop() {
	p.bridge.sendOrLog("lights:stop")
}

func (p *LightProgramPlayer) Evaluate() types.LedColor {
	return p.bridge.snapshot().ProgramColor
}

// Ground station lights

func (b *FlightBridge) GcsLights() *GcsLights {
	return &GcsLights{bridge: b}
}

type GcsLights struct {
	bridge *FlightBridge
}

func (g *GcsLights) IsActive() bool {
	return g.bridge.snapshot().GcsActive
}

func (g *GcsLights) Evaluate() types.LedColor {
	return g.bridge.snapshot().GcsColor
}

// Supervisor

func (b *FlightBridge) CanFly() bool {
	return b.snapshot().CanFly
}

func (b *FlightBridge) IsTumbled() bool {
	return b.snapshot().Tumbled
}

func (b *FlightBridge) SetEmergencyStop(stop bool) {
	b.sendOrLog("estop:%s", onOff(stop))
}

// Power

func (b *FlightBridge) BatteryVoltage() float64 {
	return b.snapshot().BatteryVoltage
}

func (b *FlightBridge) CriticalLowVoltage() float64 {
	return b.snapshot().CriticalLowVoltage
}

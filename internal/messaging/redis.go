package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"show-service/internal/logger"
	"show-service/internal/types"

	ipc "github.com/librescoot/redis-ipc"
	"github.com/redis/go-redis/v9"
)

const (
	CommandList     = "show:command"
	SettingsChannel = "settings"
	ShowHash        = "show"
	ShowChannel     = "show"

	outboxSize = 32
)

var (
	// ErrOutboxFull is returned when a message cannot be queued without blocking.
	ErrOutboxFull = errors.New("outbox full")
	// ErrInvalidCommand is returned for unparsable command payloads.
	ErrInvalidCommand = errors.New("invalid command")
)

type Callbacks struct {
	StartCallback    func(int) error // delay in milliseconds, negative to join late
	StopCallback     func() error
	PauseCallback    func() error
	RestartCallback  func() error
	SettingsCallback func(string) error // setting key that was updated (e.g., "show.enabled")
}

type RedisClient struct {
	host   string
	port   int
	client *ipc.Client
	logger *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	commands  *ipc.QueueHandler[string]
	settings  *ipc.Subscription[string]
	show      *ipc.HashPublisher

	mu        sync.RWMutex
	callbacks Callbacks

	states chan types.ShowState
	colors chan types.LedColor // holds the latest color only
}

func NewRedisClient(host string, port int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		host:      host,
		port:      port,
		callbacks: callbacks,
		logger:    l,
		ctx:       ctx,
		cancel:    cancel,
		states:    make(chan types.ShowState, outboxSize),
		colors:    make(chan types.LedColor, 1),
	}
}

// Client returns the connection for components sharing it. It is nil until
// Connect succeeded.
func (r *RedisClient) Client() *ipc.Client {
	return r.client
}

func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.mu.Lock()
	r.callbacks = callbacks
	r.mu.Unlock()
}

func (r *RedisClient) getCallbacks() Callbacks {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbacks
}

// Connect opens the connection and starts the state publisher. Losing the
// connection later exits the process so systemd can restart it.
func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s:%d", r.host, r.port)

	client, err := ipc.New(
		ipc.WithAddress(r.host),
		ipc.WithPort(r.port),
		ipc.WithCodec(ipc.StringCodec{}),
		ipc.WithLogger(r.logger.Slog()),
		ipc.WithOnDisconnect(func(error) {
			r.logger.Fatalf("Redis connection lost, exiting to allow systemd restart")
		}),
	)
	if err != nil {
		r.logger.Errorf("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")

	r.client = client
	r.show = client.NewHashPublisherWithChannel(ShowHash, ShowChannel)
	r.wg.Add(1)
	go r.publisher()
	return nil
}

// StartListening starts the command and settings listeners
func (r *RedisClient) StartListening() error {
	if r.client == nil {
		return errors.New("redis client not connected")
	}

	var err error
	r.startOnce.Do(func() {
		r.logger.Infof("Starting Redis listeners")

		r.settings, err = ipc.Subscribe(r.client, SettingsChannel, r.handleSettings)
		if err != nil {
			err = fmt.Errorf("failed to subscribe to %s: %w", SettingsChannel, err)
			return
		}
		r.logger.Infof("Subscribed to Redis channels: %s", SettingsChannel)

		r.commands = ipc.HandleRequests(r.client, CommandList, func(value string) error {
			r.logger.Debugf("Received command from %s: %s", CommandList, value)
			if err := r.handleShowCommand(value); err != nil {
				r.logger.Warnf("Error handling %s command: %v", CommandList, err)
			}
			return nil
		})
	})
	return err
}

func (r *RedisClient) handleSettings(key string) error {
	r.logger.Debugf("Received settings update: %s", key)
	if cb := r.getCallbacks(); cb.SettingsCallback != nil {
		if err := cb.SettingsCallback(key); err != nil {
			r.logger.Warnf("Failed to handle settings update %s: %v", key, err)
		}
	}
	return nil
}

// ParseCommand splits a show command payload. Accepted payloads are
// "start", "start:<delayMs>", "stop", "pause" and "restart".
func ParseCommand(value string) (name string, delayMs int, err error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(value), ":")
	switch name {
	case "start":
		if !hasArg {
			return name, 0, nil
		}
		delayMs, err = strconv.Atoi(arg)
		if err != nil {
			return "", 0, fmt.Errorf("%w: bad start delay %q", ErrInvalidCommand, arg)
		}
		return name, delayMs, nil
	case "stop", "pause", "restart":
		if hasArg {
			return "", 0, fmt.Errorf("%w: %s takes no argument", ErrInvalidCommand, name)
		}
		return name, 0, nil
	default:
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidCommand, value)
	}
}

func (r *RedisClient) handleShowCommand(value string) error {
	name, delayMs, err := ParseCommand(value)
	if err != nil {
		r.logger.Infof("Invalid show command value: %s", value)
		return err
	}

	cb := r.getCallbacks()
	switch name {
	case "start":
		if cb.StartCallback != nil {
			return cb.StartCallback(delayMs)
		}
	case "stop":
		if cb.StopCallback != nil {
			return cb.StopCallback()
		}
	case "pause":
		if cb.PauseCallback != nil {
			return cb.PauseCallback()
		}
	case "restart":
		if cb.RestartCallback != nil {
			return cb.RestartCallback()
		}
	}
	return nil
}

// PublishState queues a state change for publishing
func (r *RedisClient) PublishState(state types.ShowState) error {
	select {
	case r.states <- state:
		return nil
	default:
		return fmt.Errorf("state %s dropped: %w", state, ErrOutboxFull)
	}
}

// PublishColor queues a color, replacing one that was not published yet.
func (r *RedisClient) PublishColor(color types.LedColor) error {
	for {
		select {
		case r.colors <- color:
			return nil
		default:
		}
		select {
		case <-r.colors:
		default:
		}
	}
}

func (r *RedisClient) publisher() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case state := <-r.states:
			if err := r.writeState(state); err != nil {
				r.logger.Errorf("Failed to publish state: %v", err)
			}
		case color := <-r.colors:
			if err := r.show.Set("color", color.String(), ipc.Sync()); err != nil {
				r.logger.Debugf("Failed to publish color: %v", err)
			}
		}
	}
}

func (r *RedisClient) writeState(state types.ShowState) error {
	r.logger.Debugf("Publishing show state: %s", state)
	return r.show.SetWithTimestamp("state", string(state), ipc.Sync())
}

func (r *RedisClient) GetHashField(hash, field string) (string, error) {
	if r.client == nil {
		return "", errors.New("redis client not connected")
	}
	value, err := r.client.HGet(hash, field)
	if errors.Is(err, redis.Nil) {
		// Field doesn't exist, return empty string
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get hash field %s from %s: %w", field, hash, err)
	}
	return value, nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()
	if r.commands != nil {
		r.commands.Stop()
	}
	if r.settings != nil {
		if err := r.settings.Unsubscribe(); err != nil {
			r.logger.Debugf("Failed to unsubscribe from %s: %v", SettingsChannel, err)
		}
	}

	// Wait for the publisher with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(6 * time.Second):
		r.logger.Warnf("Timed out waiting for Redis publisher")
	}
	if r.client == nil {
		return nil
	}
	return r.client.CloseWithTimeout(6 * time.Second)
}

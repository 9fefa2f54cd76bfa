package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Wire prefixes used by the CRUD service's PUB socket. The body after the
// prefix is a JSON object {"op": ..., "id": ..., "at": ...}.
const (
	RelationshipPrefix = "REL:"
	EntityPrefix       = "ENT:"
)

// BridgeRecorder counts bridge traffic. *metrics.Registry satisfies it.
type BridgeRecorder interface {
	RecordBridgeMessage(result string)
}

// BridgeConfig configures an NNGBridge.
type BridgeConfig struct {
	Addr        string        // e.g. tcp://crud:7400
	RecvTimeout time.Duration // poll interval for shutdown; default 1s
}

// NNGBridge subscribes to change notifications published by another
// process over nanomsg and republishes them on a local PubSub.
type NNGBridge struct {
	cfg      BridgeConfig
	target   storage.ChangePublisher
	logger   logging.Logger
	recorder BridgeRecorder

	sock    mangos.Socket
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewNNGBridge creates a bridge that forwards into target. recorder may be nil.
func NewNNGBridge(cfg BridgeConfig, target storage.ChangePublisher, logger logging.Logger, recorder BridgeRecorder) *NNGBridge {
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &NNGBridge{
		cfg:      cfg,
		target:   target,
		logger:   logger.With(logging.Component("nng-bridge")),
		recorder: recorder,
	}
}

// Start dials the publisher and begins forwarding. Dialing is asynchronous:
// the bridge reconnects on its own if the publisher is not up yet.
func (b *NNGBridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("nng bridge already running")
	}
	if b.cfg.Addr == "" {
		return errors.New("nng bridge: address required")
	}

	sock, err := sub.NewSocket()
	if err != nil {
		return fmt.Errorf("failed to create SUB socket: %w", err)
	}
	for _, prefix := range []string{RelationshipPrefix, EntityPrefix} {
		if err := sock.SetOption(mangos.OptionSubscribe, []byte(prefix)); err != nil {
			sock.Close()
			return fmt.Errorf("failed to subscribe to %s: %w", prefix, err)
		}
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, b.cfg.RecvTimeout); err != nil {
		sock.Close()
		return fmt.Errorf("failed to set receive deadline: %w", err)
	}
	if err := sock.DialOptions(b.cfg.Addr, map[string]any{mangos.OptionDialAsynch: true}); err != nil {
		sock.Close()
		return fmt.Errorf("failed to dial %s: %w", b.cfg.Addr, err)
	}

	b.sock = sock
	b.stopCh = make(chan struct{})
	b.running = true

	b.wg.Add(1)
	go b.receive()

	b.logger.Info("nng bridge started", logging.String("addr", b.cfg.Addr))
	return nil
}

// Stop closes the socket and waits for the receive loop to exit.
func (b *NNGBridge) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.stopCh)
	b.mu.Unlock()

	b.wg.Wait()
	return b.sock.Close()
}

// Run starts the bridge and stops it when ctx is done.
func (b *NNGBridge) Run(ctx context.Context) error {
	if err := b.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return b.Stop()
}

func (b *NNGBridge) receive() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		msg, err := b.sock.Recv()
		if err != nil {
			if errors.Is(err, mangos.ErrClosed) {
				return
			}
			// Receive deadline; loop to check stopCh
			continue
		}
		b.handle(msg)
	}
}

func (b *NNGBridge) handle(msg []byte) {
	ev, err := decodeChange(msg)
	switch {
	case err != nil:
		b.record("malformed")
		b.logger.Warn("dropping malformed change notification", logging.Error(err))
	case ev == nil:
		b.record("ignored")
	default:
		b.target.Publish(ev.Topic(), *ev)
		b.record("forwarded")
	}
}

func (b *NNGBridge) record(result string) {
	if b.recorder != nil {
		b.recorder.RecordBridgeMessage(result)
	}
}

// decodeChange parses one wire message. It returns (nil, nil) for messages
// with an unknown prefix.
func decodeChange(msg []byte) (*storage.ChangeEvent, error) {
	var kind storage.ChangeKind
	var body []byte
	switch {
	case bytes.HasPrefix(msg, []byte(RelationshipPrefix)):
		kind, body = storage.ChangeRelationship, msg[len(RelationshipPrefix):]
	case bytes.HasPrefix(msg, []byte(EntityPrefix)):
		kind, body = storage.ChangeEntity, msg[len(EntityPrefix):]
	default:
		return nil, nil
	}

	var ev storage.ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode %s notification: %w", kind, err)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("%s notification without id", kind)
	}
	switch ev.Op {
	case storage.OpCreated, storage.OpUpdated, storage.OpDeleted:
	default:
		return nil, fmt.Errorf("%s notification with unknown op %q", kind, ev.Op)
	}
	ev.Kind = kind
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	return &ev, nil
}

// EncodeChange renders ev in wire form. Used by publishers and tests.
func EncodeChange(ev storage.ChangeEvent) ([]byte, error) {
	prefix := RelationshipPrefix
	if ev.Kind == storage.ChangeEntity {
		prefix = EntityPrefix
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return append([]byte(prefix), body...), nil
}

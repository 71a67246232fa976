package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/huykn/inspector/storage"
	"github.com/huykn/inspector/types"
	"github.com/redis/go-redis/v9"
)

// InvalidationEvent is an alias for types.InvalidationEvent
type InvalidationEvent = types.InvalidationEvent

// PubSubSynchronizer fans invalidation events out to peer instances using Redis Pub/Sub.
// Events carry only the invalidation target; values are never shared.
type PubSubSynchronizer struct {
	client         *redis.Client
	channel        string
	podID          string
	serializer     storage.Serializer
	pubsub         *redis.PubSub
	callbacks      []func(event InvalidationEvent)
	callbacksMutex sync.RWMutex
	done           chan struct{}
	closeOnce      sync.Once
	wg             sync.WaitGroup
	onError        func(error)
}

// NewPubSubSynchronizer creates a new Pub/Sub synchronizer.
// A nil serializer defaults to JSON.
func NewPubSubSynchronizer(client *redis.Client, channel, podID string, serializer storage.Serializer) *PubSubSynchronizer {
	if serializer == nil {
		serializer = storage.NewJSONSerializer()
	}
	return &PubSubSynchronizer{
		client:     client,
		channel:    channel,
		podID:      podID,
		serializer: serializer,
		callbacks:  make([]func(event InvalidationEvent), 0),
		done:       make(chan struct{}),
	}
}

// OnError registers a handler for payloads that fail to decode.
func (ps *PubSubSynchronizer) OnError(fn func(error)) {
	ps.onError = fn
}

// Subscribe starts listening for invalidation events.
// It returns once Redis has confirmed the subscription.
func (ps *PubSubSynchronizer) Subscribe(ctx context.Context) error {
	ps.pubsub = ps.client.Subscribe(ctx, ps.channel)
	if _, err := ps.pubsub.Receive(ctx); err != nil {
		_ = ps.pubsub.Close()
		ps.pubsub = nil
		return fmt.Errorf("failed to subscribe to %s: %w", ps.channel, err)
	}

	ps.wg.Add(1)
	go ps.listenForEvents()

	return nil
}

// Publish publishes an invalidation event stamped with this pod's ID.
func (ps *PubSubSynchronizer) Publish(ctx context.Context, event InvalidationEvent) error {
	event.Sender = ps.podID
	data, err := ps.serializer.Marshal(event)
	if err != nil {
		return err
	}

	return ps.client.Publish(ctx, ps.channel, data).Err()
}

// OnInvalidate registers a callback for invalidation events.
func (ps *PubSubSynchronizer) OnInvalidate(callback func(event InvalidationEvent)) {
	ps.callbacksMutex.Lock()
	defer ps.callbacksMutex.Unlock()
	ps.callbacks = append(ps.callbacks, callback)
}

// Close closes the synchronizer. It is safe to call more than once.
func (ps *PubSubSynchronizer) Close() error {
	var err error
	ps.closeOnce.Do(func() {
		close(ps.done)
		ps.wg.Wait()

		if ps.pubsub != nil {
			err = ps.pubsub.Close()
		}
	})
	return err
}

// listenForEvents listens for invalidation events from Redis Pub/Sub.
func (ps *PubSubSynchronizer) listenForEvents() {
	defer ps.wg.Done()

	ch := ps.pubsub.Channel()

	for {
		select {
		case <-ps.done:
			return
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}

			var event InvalidationEvent
			if err := ps.serializer.Unmarshal([]byte(msg.Payload), &event); err != nil {
				if ps.onError != nil {
					ps.onError(fmt.Errorf("failed to decode invalidation event: %w", err))
				}
				continue
			}

			// Own events were already applied locally
			if event.Sender == ps.podID {
				continue
			}

			ps.callbacksMutex.RLock()
			callbacks := ps.callbacks
			ps.callbacksMutex.RUnlock()

			for _, callback := range callbacks {
				callback(event)
			}
		}
	}
}

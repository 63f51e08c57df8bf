package signup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Proton-105/storefront-account/internal/account"
)

// ChannelDispatcher hands signup requests to in-process workers through a
// watermill go channel.
type ChannelDispatcher struct {
	pubsub      *gochannel.GoChannel
	topic       string
	concurrency int
	hashCost    int
	service     *Service
	log         *slog.Logger
	wg          sync.WaitGroup
}

var _ account.Signer = (*ChannelDispatcher)(nil)

// NewChannelDispatcher creates a dispatcher publishing on topic.
func NewChannelDispatcher(service *Service, topic string, concurrency, hashCost int, log *slog.Logger) *ChannelDispatcher {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	return &ChannelDispatcher{
		pubsub:      pubsub,
		topic:       topic,
		concurrency: concurrency,
		hashCost:    hashCost,
		service:     service,
		log:         log,
	}
}

// Start subscribes the workers. Messages published before Start are dropped,
// so Start must return before the first Dispatch. Cancelling ctx stops the
// subscription but lets in-flight signups finish.
func (d *ChannelDispatcher) Start(ctx context.Context) error {
	messages, err := d.pubsub.Subscribe(ctx, d.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", d.topic, err)
	}

	workCtx := context.WithoutCancel(ctx)
	slots := make(chan struct{}, d.concurrency)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for msg := range messages {
			payload, ok := d.decode(msg)
			// the channel holds back the next message until this one is acked
			msg.Ack()
			if !ok {
				continue
			}

			slots <- struct{}{}
			d.wg.Add(1)
			go func() {
				defer func() {
					<-slots
					d.wg.Done()
				}()
				d.process(workCtx, payload)
			}()
		}
	}()

	return nil
}

// Dispatch marks the signup as loading and publishes it.
func (d *ChannelDispatcher) Dispatch(ctx context.Context, widgetID string, req account.SignupRequest) error {
	payload, err := NewPayload(widgetID, req, d.hashCost)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return d.service.Reject(ctx, widgetID, account.StatusInvalidRequest)
		}
		return err
	}

	if err := d.service.results.SaveResult(ctx, widgetID, account.SignupResult{Loading: true}); err != nil {
		return fmt.Errorf("mark signup loading: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		d.service.abandon(ctx, widgetID)
		return fmt.Errorf("encode signup payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("widget_id", widgetID)

	if err := d.pubsub.Publish(d.topic, msg); err != nil {
		d.service.abandon(ctx, widgetID)
		return fmt.Errorf("publish signup: %w", err)
	}
	return nil
}

// Close stops accepting messages and waits for the workers to drain.
func (d *ChannelDispatcher) Close() error {
	err := d.pubsub.Close()
	d.wg.Wait()
	return err
}

func (d *ChannelDispatcher) decode(msg *message.Message) (Payload, bool) {
	var payload Payload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		d.log.Error("dropping malformed signup message", slog.String("message_uuid", msg.UUID), slog.Any("error", err))
		return Payload{}, false
	}
	return payload, true
}

func (d *ChannelDispatcher) process(ctx context.Context, payload Payload) {
	if _, err := d.service.Process(ctx, payload); err != nil {
		d.log.ErrorContext(ctx, "signup result not stored", slog.String("widget_id", payload.WidgetID), slog.Any("error", err))
	}
}

package messaging

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"

	"wrightstv/contexts/elections/stv-counting/ports"
)

const (
	defaultPartitions = 8
	partitionBuffer   = 128
)

// Kafka is an in-process event bus with the delivery rules of a Kafka topic:
// events are partitioned by their election key, each consumer group receives
// every event once, and events for one election reach a group in publish
// order. Broker addresses are only logged.
type Kafka struct {
	mu         sync.RWMutex
	groups     map[string]map[string]*consumerGroup
	partitions int
	nextMember uint64
	logger     *slog.Logger
}

type groupMember struct {
	id      uint64
	handler func(context.Context, ports.EventEnvelope) error
}

// consumerGroup drains each partition on its own goroutine and hands the
// partition to one member, so an election's events are handled serially.
type consumerGroup struct {
	topic      string
	name       string
	partitions []chan ports.EventEnvelope
	members    []groupMember
	cancel     context.CancelFunc
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger != nil {
		logger.Info("event bus initialised",
			"event", "kafka_bus_initialised",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"brokers", strings.Join(brokers, ","),
			"partitions", defaultPartitions,
		)
	}
	return &Kafka{
		groups:     make(map[string]map[string]*consumerGroup),
		partitions: defaultPartitions,
		logger:     logger,
	}, nil
}

// Publish queues the event on its election's partition in every group
// subscribed to topic. A full partition drops the event for that group.
func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	partition := k.partitionFor(event.PartitionKey)

	k.mu.RLock()
	targets := make([]chan ports.EventEnvelope, 0, len(k.groups[topic]))
	names := make([]string, 0, len(k.groups[topic]))
	for name, group := range k.groups[topic] {
		targets = append(targets, group.partitions[partition])
		names = append(names, name)
	}
	k.mu.RUnlock()

	for i, queue := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case queue <- event:
		default:
			k.warn("dropping event for slow consumer group",
				"event", "kafka_publish_drop",
				"topic", topic,
				"consumer_group", names[i],
				"partition", partition,
				"event_id", event.EventID,
				"election_id", event.PartitionKey,
			)
		}
	}

	if k.logger != nil {
		k.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"partition", partition,
			"election_id", event.PartitionKey,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"consumer_groups", len(targets),
		)
	}
	return nil
}

// Subscribe joins groupName on topic until ctx is done. Members of one
// group split the partitions between them.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	groupName string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	k.mu.Lock()
	byName := k.groups[topic]
	if byName == nil {
		byName = make(map[string]*consumerGroup)
		k.groups[topic] = byName
	}
	group := byName[groupName]
	if group == nil {
		group = k.startGroup(topic, groupName)
		byName[groupName] = group
	}
	k.nextMember++
	memberID := k.nextMember
	group.members = append(group.members, groupMember{id: memberID, handler: handler})
	k.mu.Unlock()

	go func() {
		<-ctx.Done()
		k.leave(topic, groupName, memberID)
	}()
	return nil
}

func (k *Kafka) startGroup(topic string, name string) *consumerGroup {
	groupCtx, cancel := context.WithCancel(context.Background())
	group := &consumerGroup{
		topic:      topic,
		name:       name,
		partitions: make([]chan ports.EventEnvelope, k.partitions),
		cancel:     cancel,
	}
	for p := range group.partitions {
		group.partitions[p] = make(chan ports.EventEnvelope, partitionBuffer)
		go k.drain(groupCtx, group, p)
	}
	return group
}

func (k *Kafka) drain(ctx context.Context, group *consumerGroup, partition int) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-group.partitions[partition]:
			handler, ok := k.owner(group, partition)
			if !ok {
				continue
			}
			if err := handler(ctx, event); err != nil && k.logger != nil {
				k.logger.Error("consumer handler failed",
					"event", "kafka_consume_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", group.topic,
					"consumer_group", group.name,
					"partition", partition,
					"election_id", event.PartitionKey,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"error", err.Error(),
				)
			}
		}
	}
}

func (k *Kafka) owner(group *consumerGroup, partition int) (func(context.Context, ports.EventEnvelope) error, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if len(group.members) == 0 {
		return nil, false
	}
	return group.members[partition%len(group.members)].handler, true
}

// leave drops a member; the group stops once its last member is gone.
func (k *Kafka) leave(topic string, name string, memberID uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	group := k.groups[topic][name]
	if group == nil {
		return
	}
	kept := group.members[:0]
	for _, m := range group.members {
		if m.id != memberID {
			kept = append(kept, m)
		}
	}
	group.members = kept
	if len(group.members) > 0 {
		return
	}
	group.cancel()
	delete(k.groups[topic], name)
	if len(k.groups[topic]) == 0 {
		delete(k.groups, topic)
	}
}

func (k *Kafka) partitionFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(k.partitions))
}

func (k *Kafka) warn(msg string, attrs ...any) {
	if k.logger == nil {
		return
	}
	k.logger.Warn(msg, append([]any{"module", "internal/platform/messaging", "layer", "platform"}, attrs...)...)
}

var _ ports.EventPublisher = (*Kafka)(nil)
var _ ports.EventSubscriber = (*Kafka)(nil)

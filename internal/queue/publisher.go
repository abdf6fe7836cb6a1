// Package queue publishes scan inputs and outputs to their kafka topics.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jcarver/oddsparity/internal/arb"
	"github.com/jcarver/oddsparity/internal/markets"
)

// PublishSnapshots writes one message per market onto the snapshot topic.
func PublishSnapshots(ctx context.Context, writer *kafka.Writer, venue markets.Venue, questions []markets.MarketQuestion) error {
	if writer == nil || len(questions) == 0 {
		return nil
	}

	captured := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(questions))
	for _, q := range questions {
		snapshot := markets.NewSnapshot(venue, q, captured)
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot %s: %w", q.ID, err)
		}
		key := fmt.Sprintf("%s-%s-%d", venue, q.ID, captured.UnixNano())
		msgs = append(msgs, kafka.Message{Key: []byte(key), Value: payload})
	}
	return writer.WriteMessages(ctx, msgs...)
}

// PublishOpportunities writes the ranked opportunity snapshot for the
// alerting collaborator. Rejected opportunities are not published.
func PublishOpportunities(ctx context.Context, writer *kafka.Writer, ops []arb.Opportunity) error {
	if writer == nil || len(ops) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(ops))
	for _, op := range ops {
		if op.Classification == arb.ClassRejected {
			continue
		}
		payload, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", op.PairID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(op.PairID), Value: payload})
	}
	if len(msgs) == 0 {
		return nil
	}
	return writer.WriteMessages(ctx, msgs...)
}

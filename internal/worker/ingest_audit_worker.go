package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docuchat/internal/model"
)

// eventSink persists one audit event. Satisfied by
// repository.IngestEventRepository.
type eventSink interface {
	Create(event *model.IngestEvent) error
}

// IngestAuditWorker drains the ingest audit queue into the database so
// upload history survives restarts even though chat turns are
// stateless.
type IngestAuditWorker struct {
	conn      *amqp.Connection
	sink      eventSink
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestAuditWorker(conn *amqp.Connection, sink eventSink, queueName string) *IngestAuditWorker {
	return &IngestAuditWorker{
		conn:      conn,
		sink:      sink,
		queueName: queueName,
	}
}

func (w *IngestAuditWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				if err := w.handleDelivery(d.Body); err != nil {
					log.Printf("audit worker drop event: %v", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *IngestAuditWorker) handleDelivery(body []byte) error {
	var event model.IngestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode ingest event failed: %w", err)
	}
	if err := w.sink.Create(&event); err != nil {
		return fmt.Errorf("persist ingest event failed: %w", err)
	}
	return nil
}

func (w *IngestAuditWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

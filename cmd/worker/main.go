// Worker runs the background jobs: the session expiry sweep, and when Kafka
// is configured, a consumer that logs security events for operators. Set
// DATABASE_URL; KAFKA_BROKERS, SECURITY_EVENT_TOPIC, and KAFKA_GROUP_ID
// enable the consumer.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"taskhub/backend/internal/config"
	"taskhub/backend/internal/db"
	"taskhub/backend/internal/event"
	sessionrepo "taskhub/backend/internal/session/repository"
	"taskhub/backend/internal/session/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("worker: db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	sessions := sessionrepo.NewPostgresRepository(conn)
	sw := sweeper.New(sessions, cfg.SweepEvery())

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Println("worker: KAFKA_BROKERS not set, running sweep only")
		sw.Run(ctx)
		log.Println("worker: stopped")
		return
	}

	go sw.Run(ctx)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.SecurityEventTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	log.Printf("worker: consuming from %s (group %s)", cfg.SecurityEventTopic, cfg.KafkaGroupID)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		var e event.SecurityEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			log.Printf("worker: bad security event at offset %d: %v", msg.Offset, err)
			continue
		}
		log.Printf("worker: security event %s user=%s session=%s source=%s", e.EventType, e.UserID, e.SessionID, e.Source)
	}
}

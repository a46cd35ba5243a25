package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"voicedesk/config"
	callRepo "voicedesk/database/repository/call"
	"voicedesk/models"
	"voicedesk/services/orchestrator"

	"github.com/hibiken/asynq"
)

const (
	TypeSessionReap  = "call:reap"
	TypePersistRetry = "call:persist_retry"
)

type reapPayload struct {
	CallID string `json:"callId"`
}

// Scheduler enqueues background tasks for the orchestrator. It implements
// orchestrator.ReapScheduler and orchestrator.PersistRetrier.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler() *Scheduler {
	return &Scheduler{client: asynq.NewClient(redisOpts())}
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisWorkerDB,
	}
}

// ScheduleReap enforces the session wall-clock cap: after the delay the worker
// force-ends the call if it is somehow still live.
func (s *Scheduler) ScheduleReap(callID string, after time.Duration) error {
	payload, err := json.Marshal(reapPayload{CallID: callID})
	if err != nil {
		return fmt.Errorf("failed to marshal reap payload: %w", err)
	}
	task := asynq.NewTask(TypeSessionReap, payload)
	if _, err := s.client.Enqueue(task, asynq.ProcessIn(after), asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("failed to enqueue session reap: %w", err)
	}
	return nil
}

// EnqueuePersistRetry queues a call record whose synchronous save failed.
func (s *Scheduler) EnqueuePersistRetry(record *models.CallRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %w", err)
	}
	task := asynq.NewTask(TypePersistRetry, payload)
	if _, err := s.client.Enqueue(task, asynq.ProcessIn(time.Minute), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue persist retry: %w", err)
	}
	return nil
}

// InitWorker runs the async worker in background.
func InitWorker(orch orchestrator.Orchestrator, calls callRepo.CallRepo) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionReap, handleSessionReap(orch))
	mux.HandleFunc(TypePersistRetry, handlePersistRetry(calls))

	// Start async worker with retry logic
	go func() {
		log.Println("[Worker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleSessionReap(orch orchestrator.Orchestrator) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload reapPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid reap payload: %w", err)
		}
		if err := orch.ForceEnd(ctx, payload.CallID, orchestrator.ReasonWallClock); err != nil {
			return fmt.Errorf("failed to reap session %s: %w", payload.CallID, err)
		}
		return nil
	}
}

func handlePersistRetry(calls callRepo.CallRepo) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var record models.CallRecord
		if err := json.Unmarshal(t.Payload(), &record); err != nil {
			return fmt.Errorf("invalid call record payload: %w", err)
		}
		if err := calls.SaveCall(ctx, &record); err != nil {
			return fmt.Errorf("failed to persist call record %s: %w", record.ID, err)
		}
		return nil
	}
}

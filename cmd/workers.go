/*
Copyright 2024 Sentro Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/sentrohq/sentro"
	"github.com/sentrohq/sentro/config"
	redis_db "github.com/sentrohq/sentro/internal/redis-db"
	"github.com/sentrohq/sentro/internal/traces"
)

// processExpirySweep expires pending web tickets whose confirmation
// codes passed the one hour horizon.
func (b *sentroInstance) processExpirySweep(ctx context.Context, _ *asynq.Task) error {
	ctx, span := otel.Tracer("sentro.confirmation.worker").Start(ctx, "Expire Stale Confirmations")
	defer span.End()

	expired, err := b.sentro.CleanupExpiredCodes(ctx)
	if err != nil {
		logrus.Error(err)
		return err
	}

	log.Printf(" [*] Expiry sweep finished, %d tickets expired", expired)
	return nil
}

// processServingClear wipes every department's now-serving entry at
// the daily rollover so yesterday's codes never greet the morning
// queue.
func (b *sentroInstance) processServingClear(ctx context.Context, _ *asynq.Task) error {
	ctx, span := otel.Tracer("sentro.serving.worker").Start(ctx, "Clear Now Serving Entries")
	defer span.End()

	if err := b.sentro.ClearAllNowServing(ctx); err != nil {
		logrus.Error(err)
		return err
	}

	log.Println(" [*] Serving entries cleared")
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.ExpirySweepQueue] = 3
	queues[cfg.Queue.ServingClearQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(b *sentroInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(sentro.ExpirySweepTask, b.processExpirySweep)
	mux.HandleFunc(sentro.ServingClearTask, b.processServingClear)
}

// initializeScheduler registers the periodic tasks: the ten minute
// confirmation expiry sweep and the midnight serving clear.
func initializeScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		nil,
	)

	_, err = scheduler.Register(conf.Queue.ExpirySweepCron,
		asynq.NewTask(sentro.ExpirySweepTask, nil),
		asynq.Queue(conf.Queue.ExpirySweepQueue))
	if err != nil {
		return nil, fmt.Errorf("error registering expiry sweep: %v", err)
	}

	_, err = scheduler.Register(conf.Queue.ServingClearCron,
		asynq.NewTask(sentro.ServingClearTask, nil),
		asynq.Queue(conf.Queue.ServingClearQueue))
	if err != nil {
		return nil, fmt.Errorf("error registering serving clear: %v", err)
	}

	return scheduler, nil
}

// workerCommands defines the "workers" command that runs the expiry
// sweep and serving clear workers together with their scheduler.
func workerCommands(b *sentroInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start sentro workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			shutdownTracing, err := traces.SetupTracing(context.Background(), conf)
			if err != nil {
				log.Printf("Failed to set up tracing: %v", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					log.Printf("Failed to shut down tracing: %v", err)
				}
			}()

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			scheduler, err := initializeScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}

			go func() {
				if err := scheduler.Run(); err != nil {
					log.Fatalf("could not run scheduler: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}

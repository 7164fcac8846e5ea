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

package sentro

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sentrohq/sentro/config"
	redis_db "github.com/sentrohq/sentro/internal/redis-db"
)

// Task types handled by the background workers.
const (
	// ExpirySweepTask moves pending web tickets past the confirmation
	// horizon to expired.
	ExpirySweepTask = "confirmation:expiry_sweep"

	// ServingClearTask wipes every department's now-serving entry at
	// the daily rollover.
	ServingClearTask = "serving:clear_all"
)

// TaskQueue wraps the asynq client used to enqueue background work.
type TaskQueue struct {
	Client *asynq.Client
}

// NewTaskQueue initializes a TaskQueue against the configured Redis.
func NewTaskQueue(conf *config.Configuration) *TaskQueue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	return &TaskQueue{
		Client: asynq.NewClient(queueOptions),
	}
}

// EnqueueExpirySweep queues a confirmation expiry sweep. A positive
// delay schedules the sweep for later; issuance uses this to line a
// sweep up right behind each web ticket's confirmation horizon.
func (q *TaskQueue) EnqueueExpirySweep(ctx context.Context, delay time.Duration) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.Queue(cfg.Queue.ExpirySweepQueue)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	task := asynq.NewTask(ExpirySweepTask, nil)
	_, err = q.Client.EnqueueContext(ctx, task, opts...)
	return err
}

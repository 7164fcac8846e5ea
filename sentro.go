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
	"embed"

	"github.com/sentrohq/sentro/config"
	"github.com/sentrohq/sentro/database"
	"github.com/sentrohq/sentro/internal/cache"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Sentro is the queue management service. It owns the ticket ledger,
// the now-serving cache and the background task queue.
type Sentro struct {
	queue      *TaskQueue
	cache      cache.Cache
	datasource database.IDataSource
}

// NewSentro initializes the service with the provided datasource. It
// fetches the configuration and wires the Redis cache and the task
// queue client.
func NewSentro(db database.IDataSource) (*Sentro, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	cacheInstance, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	newQueue := NewTaskQueue(configuration)
	return &Sentro{datasource: db, cache: cacheInstance, queue: newQueue}, nil
}

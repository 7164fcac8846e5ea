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

	"github.com/sentrohq/sentro/model"
)

// EstimateWaitTime predicts how long a new ticket would wait for a
// department service: current waiting count times the average service
// minutes of the last 7 days of completed tickets. With no recent
// history the per-ticket average falls back to 10 minutes.
func (s *Sentro) EstimateWaitTime(ctx context.Context, departmentID, transactionID string) (*model.WaitEstimate, error) {
	waiting, err := s.datasource.CountWaitingToday(ctx, departmentID, transactionID)
	if err != nil {
		return nil, err
	}

	avg, err := s.datasource.AvgServiceMinutes(ctx, departmentID, transactionID)
	if err != nil {
		return nil, err
	}

	estimate := model.NewWaitEstimate(waiting, avg)
	return &estimate, nil
}

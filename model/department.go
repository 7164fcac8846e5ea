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

package model

import (
	"strings"
	"time"
)

// Department is a directory entry for a city office that serves
// tickets. Read-only from the queue core's perspective.
type Department struct {
	DepartmentID string    `json:"department_id"`
	Name         string    `json:"name"`
	Prefix       string    `json:"prefix"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transaction is a service offered by a department, e.g. "Real
// Property Tax Payment" under Treasury.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	DepartmentID  string    `json:"department_id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

// TicketPrefix returns the department's display-code prefix, falling
// back to the first three letters of its name when none is configured.
func (d *Department) TicketPrefix() string {
	if d.Prefix != "" {
		return strings.ToUpper(d.Prefix)
	}
	name := strings.TrimSpace(d.Name)
	if len(name) >= 3 {
		return strings.ToUpper(name[:3])
	}
	return strings.ToUpper(name)
}

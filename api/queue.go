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
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/sentrohq/sentro/api/model"
	"github.com/sentrohq/sentro/internal/apierror"
	"github.com/sentrohq/sentro/model"
)

// handleError writes a service error with the status its error code
// maps to.
func handleError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}

// GenerateTicket issues a new queue ticket. Web requests receive a
// confirmation code and wait outside the queue until confirmed at a
// kiosk.
func (a Api) GenerateTicket(c *gin.Context) {
	var newTicket model2.GenerateTicket
	if err := c.ShouldBindJSON(&newTicket); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newTicket.ValidateGenerateTicket(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	ticket, estimate, err := a.sentro.IssueTicket(c.Request.Context(), newTicket.ToTicket())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.NewTicketIssued(ticket, estimate))
}

// ValidateConfirmationCode checks a code without consuming it, so the
// kiosk can show the ticket before the citizen commits.
func (a Api) ValidateConfirmationCode(c *gin.Context) {
	var body model2.ConfirmationCode
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := body.ValidateConfirmationCode(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	ticket, err := a.sentro.ValidateConfirmationCode(c.Request.Context(), body.Code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// ConfirmAtKiosk consumes a confirmation code and places the ticket in
// the live queue.
func (a Api) ConfirmAtKiosk(c *gin.Context) {
	var body model2.ConfirmationCode
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := body.ValidateConfirmationCode(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	ticket, err := a.sentro.ConfirmAtKiosk(c.Request.Context(), body.Code)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queue_number": ticket.DisplayCode,
		"status":       ticket.Status,
	})
}

// CleanupExpiredCodes runs the confirmation expiry sweep on demand.
func (a Api) CleanupExpiredCodes(c *gin.Context) {
	expired, err := a.sentro.CleanupExpiredCodes(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired_count": expired})
}

func (a Api) GetTicket(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	ticket, err := a.sentro.GetTicket(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (a Api) GetQueueStatus(c *gin.Context) {
	departmentID, passed := c.Params.Get("department_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department_id is required. pass id in the route /:department_id"})
		return
	}

	tickets, err := a.sentro.GetQueueStatus(c.Request.Context(), departmentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"department_id": departmentID, "queue": tickets})
}

func (a Api) GetAllNowServing(c *gin.Context) {
	serving, err := a.sentro.GetAllNowServing(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"currently_serving": serving})
}

func (a Api) GetLatestUpdates(c *gin.Context) {
	updates, err := a.sentro.GetLatestUpdates(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": updates})
}

func (a Api) GetLatestUpdate(c *gin.Context) {
	departmentID, passed := c.Params.Get("department_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department_id is required. pass id in the route /:department_id"})
		return
	}

	update, err := a.sentro.GetLatestUpdate(c.Request.Context(), departmentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"department_id": departmentID, "update": update})
}

func (a Api) GetHolderTickets(c *gin.Context) {
	holderID, passed := c.Params.Get("holder_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "holder_id is required. pass id in the route /:holder_id"})
		return
	}

	tickets, err := a.sentro.GetHolderTicketsToday(c.Request.Context(), holderID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// AcceptTicket calls a waiting ticket to the counter and updates the
// department's now-serving display.
func (a Api) AcceptTicket(c *gin.Context) {
	var body model2.TicketAction
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := body.ValidateTicketAction(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	ticket, err := a.sentro.AcceptTicket(c.Request.Context(), body.QueueID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// CompleteTicket finishes service on an accepted ticket.
func (a Api) CompleteTicket(c *gin.Context) {
	var body model2.TicketAction
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := body.ValidateTicketAction(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	ticket, err := a.sentro.CompleteTicket(c.Request.Context(), body.QueueID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// UpdateTicketStatus closes an accepted ticket as successful or
// failed.
func (a Api) UpdateTicketStatus(c *gin.Context) {
	var body model2.UpdateTicketStatus
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := body.ValidateUpdateTicketStatus(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	ticket, err := a.sentro.UpdateTicketStatus(c.Request.Context(), body.QueueID, model.Status(body.Status), body.CancelReason)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// CancelTicket cancels a waiting or accepted ticket.
func (a Api) CancelTicket(c *gin.Context) {
	var body model2.CancelTicket
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := body.ValidateCancelTicket(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	ticket, err := a.sentro.CancelTicket(c.Request.Context(), body.QueueID, body.CancelReason)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// ResetQueue wipes a department's queue for today.
func (a Api) ResetQueue(c *gin.Context) {
	departmentID, passed := c.Params.Get("department_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department_id is required. pass id in the route /:department_id"})
		return
	}

	deleted, err := a.sentro.ResetQueue(c.Request.Context(), departmentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"department_id": departmentID, "deleted_count": deleted})
}

// SetNowServing manually overrides a department's display.
func (a Api) SetNowServing(c *gin.Context) {
	var body model2.SetNowServing
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := body.ValidateSetNowServing(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": err.Error()})
		return
	}

	entry, err := a.sentro.SetNowServing(c.Request.Context(), body.DepartmentID, body.QueueNumber)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ClearAllNowServing wipes every department's display entry.
func (a Api) ClearAllNowServing(c *gin.Context) {
	if err := a.sentro.ClearAllNowServing(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all serving entries cleared"})
}

func (a Api) GetTicketHistory(c *gin.Context) {
	departmentID, passed := c.Params.Get("department_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department_id is required. pass id in the route /:department_id"})
		return
	}

	tickets, err := a.sentro.GetTicketHistory(c.Request.Context(), departmentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"department_id": departmentID, "history": tickets})
}

func (a Api) GetTodayCompleted(c *gin.Context) {
	departmentID, passed := c.Params.Get("department_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "department_id is required. pass id in the route /:department_id"})
		return
	}

	tickets, err := a.sentro.GetTodayCompleted(c.Request.Context(), departmentID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"department_id": departmentID, "completed": tickets})
}

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
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sentrohq/sentro"
	"github.com/sentrohq/sentro/api/middleware"
	"github.com/sentrohq/sentro/config"
)

type Api struct {
	sentro *sentro.Sentro
	router *gin.Engine
}

// Router registers the queue routes. Reads and citizen-facing actions
// are public; counter staff actions sit behind the secret key when the
// server runs in secure mode.
func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/queue/generate", a.GenerateTicket)
	router.POST("/queue/validate-confirmation-code", a.ValidateConfirmationCode)
	router.POST("/queue/confirm-at-kiosk", a.ConfirmAtKiosk)
	router.POST("/queue/cleanup-expired-codes", a.CleanupExpiredCodes)
	router.GET("/queue/number/:id", a.GetTicket)
	router.GET("/queue/status/:department_id", a.GetQueueStatus)
	router.GET("/queue/currently-serving", a.GetAllNowServing)
	router.GET("/queue/latest-updates", a.GetLatestUpdates)
	router.GET("/queue/latest-update/:department_id", a.GetLatestUpdate)
	router.GET("/queue/my-tickets/:holder_id", a.GetHolderTickets)

	staff := router.Group("/")
	conf, err := config.Fetch()
	if err == nil && conf.Server.Secure {
		staff.Use(middleware.SecretKeyAuthMiddleware())
	}
	staff.POST("/queue/accept", a.AcceptTicket)
	staff.POST("/queue/complete", a.CompleteTicket)
	staff.POST("/queue/update-status", a.UpdateTicketStatus)
	staff.POST("/queue/cancel", a.CancelTicket)
	staff.POST("/queue/reset/:department_id", a.ResetQueue)
	staff.POST("/queue/currently-serving", a.SetNowServing)
	staff.POST("/queue/clear-all-serving", a.ClearAllNowServing)
	staff.GET("/queue/history/:department_id", a.GetTicketHistory)
	staff.GET("/queue/today-completed/:department_id", a.GetTodayCompleted)

	return a.router
}

func NewAPI(s *sentro.Sentro) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{sentro: s, router: r}
}

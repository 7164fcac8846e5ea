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
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sentrohq/sentro/model"
)

func holderKindValidation(g *GenerateTicket) validation.RuleFunc {
	return func(value interface{}) error {
		if g.HolderID == "" && g.HolderKind != "" {
			return errors.New("holder_kind requires holder_id")
		}
		return nil
	}
}

func (g *GenerateTicket) ValidateGenerateTicket() error {
	return validation.ValidateStruct(g,
		validation.Field(&g.DepartmentID, validation.Required),
		validation.Field(&g.TransactionID, validation.Required),
		validation.Field(&g.Source, validation.In(string(model.SourceWeb), string(model.SourceKiosk))),
		validation.Field(&g.HolderKind,
			validation.In(string(model.HolderCitizen), string(model.HolderStaff)),
			validation.By(holderKindValidation(g))),
	)
}

func (c *ConfirmationCode) ValidateConfirmationCode() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Code, validation.Required, validation.Length(model.ConfirmationCodeLength, model.ConfirmationCodeLength)),
	)
}

func (t *TicketAction) ValidateTicketAction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.QueueID, validation.Required),
	)
}

func (u *UpdateTicketStatus) ValidateUpdateTicketStatus() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.QueueID, validation.Required),
		validation.Field(&u.Status, validation.Required,
			validation.In(string(model.StatusSuccessful), string(model.StatusFailed))),
	)
}

func (c *CancelTicket) ValidateCancelTicket() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.QueueID, validation.Required),
	)
}

func (s *SetNowServing) ValidateSetNowServing() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.DepartmentID, validation.Required),
		validation.Field(&s.QueueNumber, validation.Required),
	)
}

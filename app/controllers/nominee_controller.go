package controllers

import (
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
)

type NomineeController struct {
	executions *services.ExecutionService
}

func NewNomineeController(executions *services.ExecutionService) *NomineeController {
	return &NomineeController{executions: executions}
}

func (n *NomineeController) Instructions(c *ctx.Context) {
	rows, err := n.executions.ListInstructions(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Instructions fetched successfully.", rows)
}

func (n *NomineeController) Execute(c *ctx.Context) {
	b, err := n.executions.Execute(c.Context(), c.Identity(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Instruction executed successfully.", b)
}

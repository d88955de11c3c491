package controllers

import (
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
)

type OrderController struct {
	orders  *services.OrderService
	exports *services.ExportService
}

func NewOrderController(orders *services.OrderService, exports *services.ExportService) *OrderController {
	return &OrderController{orders: orders, exports: exports}
}

func (o *OrderController) Index(c *ctx.Context) {
	orders, err := o.orders.ListOwn(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

func (o *OrderController) Store(c *ctx.Context) {
	var in services.CreateOrderInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := o.orders.Create(c.Context(), c.Identity(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created("Order created and distributed successfully.", order)
}

func (o *OrderController) MonitorExecution(c *ctx.Context) {
	rows, err := o.orders.MonitorExecution(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(rows)
}

func (o *OrderController) ExecutionTrend(c *ctx.Context) {
	points, err := o.orders.ExecutionTrend(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(points)
}

func (o *OrderController) Export(c *ctx.Context) { o.render(c, services.ExportOrders) }

func (o *OrderController) ExportExecutions(c *ctx.Context) { o.render(c, services.ExportExecutions) }

func (o *OrderController) render(c *ctx.Context, kind string) {
	exp, err := o.exports.Render(c.Context(), c.Identity(), kind)
	if err != nil {
		fail(c, err)
		return
	}
	download(c, exp)
}

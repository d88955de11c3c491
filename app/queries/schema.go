// Package queries defines the read-only GraphQL schema served at
// /api/graphql. Resolvers read the caller from p.Context and leave
// policy checks to the services.
package queries

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/collection"
	gql "github.com/mmsi/orderdesk/pkg/graphql"
)

type Services struct {
	Orders     *services.OrderService
	Executions *services.ExecutionService
	Rechecks   *services.RecheckService
}

var breakdownType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Breakdown",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.String},
		"nomineeName": &graphql.Field{Type: graphql.String},
		"lots":        &graphql.Field{Type: graphql.Int},
		"status":      &graphql.Field{Type: graphql.String},
		"executedAt":  &graphql.Field{Type: graphql.String},
	},
})

var orderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.String},
		"stock":      &graphql.Field{Type: graphql.String},
		"price":      &graphql.Field{Type: graphql.String},
		"lots":       &graphql.Field{Type: graphql.Int},
		"orderType":  &graphql.Field{Type: graphql.String},
		"status":     &graphql.Field{Type: graphql.String},
		"createdAt":  &graphql.Field{Type: graphql.String},
		"breakdowns": &graphql.Field{Type: graphql.NewList(breakdownType)},
	},
})

var summaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RecheckSummary",
	Fields: graphql.Fields{
		"totalKas":        &graphql.Field{Type: graphql.String},
		"totalPortofolio": &graphql.Field{Type: graphql.String},
		"verifiedCount":   &graphql.Field{Type: graphql.Int},
		"unverifiedCount": &graphql.Field{Type: graphql.Int},
	},
})

func identity(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Identity{}, services.ErrForbidden
	}
	return id, nil
}

func breakdownMap(b models.OrderBreakdown) map[string]any {
	executed := ""
	if b.ExecutionTime != nil {
		executed = b.ExecutionTime.UTC().Format(time.RFC3339)
	}
	return map[string]any{
		"id":          b.ID,
		"nomineeName": b.NomineeName(),
		"lots":        b.Lots,
		"status":      b.Status,
		"executedAt":  executed,
	}
}

func orderMap(o models.Order) map[string]any {
	return map[string]any{
		"id":         o.ID,
		"stock":      o.Stock,
		"price":      o.Price.String(),
		"lots":       o.Lots,
		"orderType":  o.OrderType,
		"status":     o.Status,
		"createdAt":  o.CreatedAt.UTC().Format(time.RFC3339),
		"breakdowns": collection.Map(o.Breakdowns, breakdownMap),
	}
}

// Schema builds the query root:
//
//	myOrders: [Order]            strategist
//	waitingInstructions: Int     nominee
//	recheckSummary: RecheckSummary  admin or nominee
func Schema(svc Services) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"myOrders": &graphql.Field{
				Type: graphql.NewList(orderType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := identity(p.Context)
					if err != nil {
						return nil, err
					}
					orders, err := svc.Orders.ListOwn(p.Context, id)
					if err != nil {
						return nil, err
					}
					return collection.Map(orders, orderMap), nil
				},
			},
			"waitingInstructions": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := identity(p.Context)
					if err != nil {
						return nil, err
					}
					n, err := svc.Executions.WaitingCount(p.Context, id)
					return int(n), err
				},
			},
			"recheckSummary": &graphql.Field{
				Type: summaryType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, err := identity(p.Context)
					if err != nil {
						return nil, err
					}
					sum, err := svc.Rechecks.Summary(p.Context, id)
					if err != nil {
						return nil, err
					}
					return map[string]any{
						"totalKas":        sum.TotalKas.String(),
						"totalPortofolio": sum.TotalPortofolio.String(),
						"verifiedCount":   sum.VerifiedCount,
						"unverifiedCount": sum.UnverifiedCount,
					}, nil
				},
			},
		},
	})
	return gql.NewSchema(query)
}

// Package graphql exposes the read side of the API as a GraphQL schema.
// Every resolver goes through the services, so results share their cache.
package graphql

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/orderly/app/resources"
	"github.com/shashiranjanraj/orderly/app/services"
	gql "github.com/shashiranjanraj/orderly/pkg/graphql"
)

// NewSchema builds the query schema over svc.
func NewSchema(svc *services.Services) (graphql.Schema, error) {
	product := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":            idField(func(s any) uuid.UUID { return s.(resources.Product).ID }),
			"name":          &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"price":         moneyField(func(s any) resources.Money { return s.(resources.Product).Price }),
			"stockQuantity": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	orderItem := graphql.NewObject(graphql.ObjectConfig{
		Name: "OrderItem",
		Fields: graphql.Fields{
			"id":        idField(func(s any) uuid.UUID { return s.(resources.OrderItem).ID }),
			"orderId":   idField(func(s any) uuid.UUID { return s.(resources.OrderItem).OrderID }),
			"productId": idField(func(s any) uuid.UUID { return s.(resources.OrderItem).ProductID }),
			"quantity":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"unitPrice": moneyField(func(s any) resources.Money { return s.(resources.OrderItem).UnitPrice }),
			"product": &graphql.Field{
				Type: product,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pr := p.Source.(resources.OrderItem).Product; pr != nil {
						return *pr, nil
					}
					return nil, nil
				},
			},
		},
	})

	order := graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.Fields{
			"id":          idField(func(s any) uuid.UUID { return s.(resources.Order).ID }),
			"customerId":  idField(func(s any) uuid.UUID { return s.(resources.Order).CustomerID }),
			"totalAmount": moneyField(func(s any) resources.Money { return s.(resources.Order).TotalAmount }),
			"createdAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(resources.Order).CreatedAt.Format(time.RFC3339Nano), nil
				},
			},
			"status": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(resources.Order).Status.String(), nil
				},
			},
			"orderItems": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(orderItem))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(resources.Order).OrderItems, nil
				},
			},
		},
	})

	customer := graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.Fields{
			"id":    idField(func(s any) uuid.UUID { return s.(resources.Customer).ID }),
			"name":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"email": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"phoneNumber": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if ph := p.Source.(resources.Customer).PhoneNumber; ph != nil {
						return *ph, nil
					}
					return nil, nil
				},
			},
			"orders": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(order))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(resources.Customer).Orders, nil
				},
			},
		},
	})

	idArg := func(name string) graphql.FieldConfigArgument {
		return graphql.FieldConfigArgument{name: &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}}
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(product))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return svc.Products.All(p.Context)
				},
			},
			"customers": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(customer))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return svc.Customers.All(p.Context)
				},
			},
			"customer": &graphql.Field{
				Type: customer,
				Args: idArg("id"),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := uuidArg(p, "id")
					if err != nil {
						return nil, err
					}
					c, ok, err := svc.Customers.Find(p.Context, id)
					if err != nil || !ok {
						return nil, err
					}
					return c, nil
				},
			},
			"order": &graphql.Field{
				Type: order,
				Args: idArg("id"),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := uuidArg(p, "id")
					if err != nil {
						return nil, err
					}
					o, ok, err := svc.Orders.Find(p.Context, id)
					if err != nil || !ok {
						return nil, err
					}
					return o, nil
				},
			},
			"customerOrders": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(order))),
				Args: idArg("customerId"),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := uuidArg(p, "customerId")
					if err != nil {
						return nil, err
					}
					return svc.Orders.ForCustomer(p.Context, id)
				},
			},
		},
	})

	return gql.NewSchema(query, nil)
}

func idField(get func(source any) uuid.UUID) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewNonNull(graphql.ID),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return get(p.Source).String(), nil
		},
	}
}

func moneyField(get func(source any) resources.Money) *graphql.Field {
	return &graphql.Field{
		Type: graphql.NewNonNull(graphql.Float),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return get(p.Source).Float(), nil
		},
	}
}

func uuidArg(p graphql.ResolveParams, name string) (uuid.UUID, error) {
	raw, _ := p.Args[name].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", name)
	}
	return id, nil
}

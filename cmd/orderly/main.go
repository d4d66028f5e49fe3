// Command orderly serves the order management API.
//
//	orderly serve            # HTTP on APP_PORT, gRPC health on GRPC_PORT
//	orderly migrate          # apply pending migrations
//	orderly seed             # load the starter catalogue
//	orderly route:list
package main

import (
	"github.com/shashiranjanraj/orderly/app/listeners"
	"github.com/shashiranjanraj/orderly/app/routes"
	_ "github.com/shashiranjanraj/orderly/database/migrations"
	"github.com/shashiranjanraj/orderly/database/seeders"
	"github.com/shashiranjanraj/orderly/pkg/app"
)

func main() {
	app.New("orderly").
		Routes(routes.Mount).
		Seeder(seeders.RunAll).
		Boot(listeners.Boot).
		Run()
}

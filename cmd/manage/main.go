package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/stavros/internal/manage"
	"github.com/dmitrijs2005/stavros/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := manage.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx, os.Args[1:])
	_ = app.Close()
	if err != nil {
		log.Fatalf("%v", err)
	}

}

package main

import (
	"flag"
	"log"

	"github.com/kabirpuri/RecurrentLidarNet/internal/app"
)

func main() {
	bagPath := flag.String("bag", "", "path to a recorded session container (.db)")
	flag.Parse()

	if *bagPath == "" {
		log.Fatal("usage: baginfo -bag <path to session .db>")
	}

	if err := app.RunBagInfo(*bagPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

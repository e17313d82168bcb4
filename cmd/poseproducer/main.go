package main

import (
	"flag"
	"log"

	"github.com/kabirpuri/RecurrentLidarNet/internal/app"
	"github.com/kabirpuri/RecurrentLidarNet/internal/config"
)

func main() {
	configPath := flag.String("config", "./autopilot_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting pose producer (NMEA GPS -> MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunPoseProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

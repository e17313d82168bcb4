package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kabirpuri/RecurrentLidarNet/internal/config"
	"github.com/kabirpuri/RecurrentLidarNet/internal/scan"
)

// RunScanSim publishes synthetic range sweeps at a fixed rate, for bench
// runs of the control pipeline without a lidar attached.
func RunScanSim() error {
	log.Println("starting scan simulator (mock sweeps -> MQTT)")

	cfg := config.Get()

	src := scan.NewMockSource(cfg.ScanSimBeams)

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDScanSim)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("scansim: connected to MQTT broker at %s", cfg.MQTTBroker)

	ticker := time.NewTicker(time.Duration(cfg.ScanSimInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		sweep, err := src.Next()
		if err != nil {
			log.Printf("scansim: source error: %v", err)
			continue
		}

		payload, err := json.Marshal(sweep)
		if err != nil {
			log.Printf("scansim: marshal error: %v", err)
			continue
		}
		if token := client.Publish(cfg.TopicScan, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("scansim: publish error: %v", token.Error())
		}
	}
	return nil
}

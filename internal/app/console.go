package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kabirpuri/RecurrentLidarNet/internal/config"
	"github.com/kabirpuri/RecurrentLidarNet/internal/msgs"
)

// RunConsole subscribes to the live telemetry topics and prints them to
// stdout until interrupted.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	driveToken := client.Subscribe(cfg.TopicDrive, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var d msgs.Drive
		if err := json.Unmarshal(msg.Payload(), &d); err != nil {
			log.Printf("console: drive unmarshal error: %v", err)
			return
		}
		fmt.Printf("[DRIVE] speed=%6.2f m/s  steer=%7.3f rad\n", d.Speed, d.SteeringAngle)
	})
	driveToken.Wait()
	if driveToken.Error() != nil {
		return driveToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicDrive)

	poseToken := client.Subscribe(cfg.TopicInferredPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p msgs.PoseStamped
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}
		fmt.Printf("[POSE ] x=%8.2f  y=%8.2f\n", p.X, p.Y)
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicInferredPose)

	scanToken := client.Subscribe(cfg.TopicScan, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s msgs.LaserScan
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: scan unmarshal error: %v", err)
			return
		}
		fmt.Printf("[SCAN ] %d beams @ %.3f\n", len(s.Ranges), s.Stamp)
	})
	scanToken.Wait()
	if scanToken.Error() != nil {
		return scanToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicScan)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

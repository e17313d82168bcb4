package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/kabirpuri/RecurrentLidarNet/internal/config"
	"github.com/kabirpuri/RecurrentLidarNet/internal/msgs"
)

// RunTrigger samples the mode-toggle button on a GPIO pin and publishes the
// raw value to the joy topic. Edge detection happens in the autopilot; this
// producer just reports levels.
func RunTrigger() error {
	log.Println("starting trigger producer (GPIO button -> MQTT)")

	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	pin := gpioreg.ByName(cfg.TriggerGPIOPin)
	if pin == nil {
		return fmt.Errorf("trigger GPIO pin %q not found", cfg.TriggerGPIOPin)
	}
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return fmt.Errorf("configure pin %q: %w", cfg.TriggerGPIOPin, err)
	}
	log.Printf("trigger: sampling pin %s every %d ms", cfg.TriggerGPIOPin, cfg.TriggerSampleInterval)

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDTrigger)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("trigger: connected to MQTT broker at %s", cfg.MQTTBroker)

	ticker := time.NewTicker(time.Duration(cfg.TriggerSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		value := 0
		if pin.Read() == gpio.High {
			value = 1
		}

		payload, err := json.Marshal(msgs.Joy{
			Stamp:   float64(t.UnixNano()) / 1e9,
			Buttons: []int{value},
		})
		if err != nil {
			log.Printf("trigger: marshal error: %v", err)
			continue
		}
		if token := client.Publish(cfg.TopicJoy, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("trigger: publish error: %v", token.Error())
		}
	}
	return nil
}

package app

import (
	"bufio"
	"encoding/json"
	"log"
	"math"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/kabirpuri/RecurrentLidarNet/internal/config"
	"github.com/kabirpuri/RecurrentLidarNet/internal/msgs"
)

// knotsToMS converts speed over ground to m/s.
const knotsToMS = 0.514444

// RunPoseProducer opens the GPS serial port, parses NMEA sentences, and
// publishes planar odometry to the pose-odometry topic. Positions are
// reported in meters relative to the first fix using a local flat-earth
// projection, which is adequate at vehicle scale.
func RunPoseProducer() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDPose)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("pose producer connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open GPS serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.PoseSerialPort,
		BaudRate:              uint(cfg.PoseBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("pose serial port opened on %s at %d baud", cfg.PoseSerialPort, cfg.PoseBaudRate)

	reader := bufio.NewReader(port)

	var (
		haveOrigin           bool
		originLat, originLon float64
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("pose read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// NMEA sentences usually start with '$'
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			if m.Validity != nmea.ValidRMC {
				continue
			}

			if !haveOrigin {
				originLat, originLon = m.Latitude, m.Longitude
				haveOrigin = true
				log.Printf("pose origin fixed at lat=%.6f lon=%.6f", originLat, originLon)
				continue
			}

			// Flat-earth projection around the origin fix.
			const metersPerDegLat = 111320.0
			x := (m.Longitude - originLon) * metersPerDegLat * math.Cos(originLat*math.Pi/180)
			y := (m.Latitude - originLat) * metersPerDegLat

			yaw := m.Course * math.Pi / 180
			speed := m.Speed * knotsToMS

			odom := msgs.Odometry{
				Stamp: float64(time.Now().UnixNano()) / 1e9,
				X:     x,
				Y:     y,
				Yaw:   yaw,
				VX:    speed * math.Cos(yaw),
				VY:    speed * math.Sin(yaw),
			}

			payload, err := json.Marshal(odom)
			if err != nil {
				log.Printf("pose JSON marshal error: %v", err)
				continue
			}

			token := client.Publish(cfg.TopicOdom, 0, false, payload)
			token.Wait()
			if token.Error() != nil {
				log.Printf("pose publish error: %v", token.Error())
				continue
			}

		default:
			// ignore other sentence types (GGA, GSA, etc.)
		}
	}
}

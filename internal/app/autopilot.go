package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kabirpuri/RecurrentLidarNet/internal/bag"
	"github.com/kabirpuri/RecurrentLidarNet/internal/config"
	"github.com/kabirpuri/RecurrentLidarNet/internal/control"
	"github.com/kabirpuri/RecurrentLidarNet/internal/drive"
	"github.com/kabirpuri/RecurrentLidarNet/internal/model"
	"github.com/kabirpuri/RecurrentLidarNet/internal/msgs"
	"github.com/kabirpuri/RecurrentLidarNet/internal/ringbuf"
	"github.com/kabirpuri/RecurrentLidarNet/internal/scan"
	"github.com/kabirpuri/RecurrentLidarNet/internal/timesync"
)

// Stream indices of the recording synchronizer. Order matches the topic
// registration order of the session container.
const (
	streamOdom = iota
	streamPFOdom
	streamScan
	streamPose
	streamImuRaw
	streamImu
)

// RunAutopilot runs the perception-to-actuation control node until
// interrupted. The recording session, if open, is closed on every exit path
// and the command trace is rendered to the figures directory.
func RunAutopilot() error {
	log.Println("starting autopilot node (sensors -> model -> drive)")

	cfg := config.Get()

	// Model artifact load is the one failure allowed to prevent startup.
	weights, err := model.LoadWeights(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	log.Printf("model loaded from %s: seq_len=%d ranges=%d hidden=%d",
		cfg.ModelPath, weights.SeqLen, weights.NumRanges, weights.Hidden)

	period := time.Duration(float64(time.Second) / cfg.ControlRateHz)
	adapter := model.NewAdapter(weights, period.Seconds())
	buffer := ringbuf.New[[]float32](weights.SeqLen)

	toggle := &drive.Toggle{}
	odometer := &control.Odometer{}
	trace := control.NewTrace()

	session := bag.NewSession(cfg.DatasetDir, []bag.TopicSpec{
		{Name: "odom", Type: "msgs/Odometry"},
		{Name: "pf_odom", Type: "msgs/Odometry"},
		{Name: "scan", Type: "msgs/LaserScan"},
		{Name: "pose", Type: "msgs/PoseStamped"},
		{Name: "imu_raw", Type: "msgs/Imu"},
		{Name: "imu", Type: "msgs/MotorImu"},
	})
	defer session.Close()

	streams := []timesync.Stream{
		{Name: "odom"},
		{Name: "pf_odom"},
		{Name: "scan"},
		{Name: "pose"},
		{Name: "imu_raw"},
		{Name: "imu", Headerless: true},
	}
	synchronizer := timesync.New(streams, cfg.SyncSlop, cfg.SyncQueueDepth, func(f timesync.Frame) {
		payloads := make(map[string][]byte, len(f.Msgs))
		for i, m := range f.Msgs {
			payloads[streams[i].Name] = m.([]byte)
		}
		session.Write(time.Now().UnixNano(), payloads)
	})

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDAutopilot)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	subscribe := func(topic string, handler mqtt.MessageHandler) error {
		token := client.Subscribe(topic, 0, handler)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %q: %w", topic, token.Error())
		}
		return nil
	}

	// Scan stream: feeds both the control buffer and the recording join.
	if err := subscribe(cfg.TopicScan, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		var m msgs.LaserScan
		if err := json.Unmarshal(payload, &m); err != nil {
			log.Printf("autopilot: scan unmarshal error: %v", err)
			return
		}
		sample := scan.Subsample(scan.Sanitize(m.Ranges), adapter.NumRanges())
		buffer.Push(sample, m.Stamp)
		synchronizer.Push(streamScan, m.Stamp, payload)
	}); err != nil {
		return err
	}

	// Manual-trigger stream: rising edges flip the mode and gate recording.
	if err := subscribe(cfg.TopicJoy, func(_ mqtt.Client, msg mqtt.Message) {
		var m msgs.Joy
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("autopilot: joy unmarshal error: %v", err)
			return
		}
		if len(m.Buttons) == 0 {
			return
		}
		switch toggle.Step(m.Buttons[0]) {
		case drive.EnteredManual:
			if err := session.Open(); err != nil {
				log.Printf("autopilot: session open failed: %v", err)
			}
		case drive.LeftManual:
			session.Close()
		}
	}); err != nil {
		return err
	}

	// Inferred pose: distance accumulation plus recording.
	if err := subscribe(cfg.TopicInferredPose, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		var m msgs.PoseStamped
		if err := json.Unmarshal(payload, &m); err != nil {
			log.Printf("autopilot: pose unmarshal error: %v", err)
			return
		}
		odometer.Update(m.X, m.Y)
		synchronizer.Push(streamPose, m.Stamp, payload)
	}); err != nil {
		return err
	}

	// Recording-only streams.
	odomHandler := func(stream int, name string) mqtt.MessageHandler {
		return func(_ mqtt.Client, msg mqtt.Message) {
			payload := append([]byte(nil), msg.Payload()...)
			var m msgs.Odometry
			if err := json.Unmarshal(payload, &m); err != nil {
				log.Printf("autopilot: %s unmarshal error: %v", name, err)
				return
			}
			synchronizer.Push(stream, m.Stamp, payload)
		}
	}
	if err := subscribe(cfg.TopicOdom, odomHandler(streamOdom, "odom")); err != nil {
		return err
	}
	if err := subscribe(cfg.TopicPFOdom, odomHandler(streamPFOdom, "pf_odom")); err != nil {
		return err
	}

	if err := subscribe(cfg.TopicImuRaw, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		var m msgs.Imu
		if err := json.Unmarshal(payload, &m); err != nil {
			log.Printf("autopilot: imu_raw unmarshal error: %v", err)
			return
		}
		synchronizer.Push(streamImuRaw, m.Stamp, payload)
	}); err != nil {
		return err
	}

	// The processed inertial stream is headerless; match by arrival time.
	if err := subscribe(cfg.TopicImu, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		now := float64(time.Now().UnixNano()) / 1e9
		synchronizer.Push(streamImu, now, payload)
	}); err != nil {
		return err
	}

	publish := func(cmd drive.Command) {
		payload, err := json.Marshal(msgs.Drive{
			Stamp:         float64(time.Now().UnixNano()) / 1e9,
			Speed:         cmd.Speed,
			SteeringAngle: cmd.SteeringAngle,
		})
		if err != nil {
			log.Printf("autopilot: drive marshal error: %v", err)
			return
		}
		if token := client.Publish(cfg.TopicDrive, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("autopilot: drive publish error: %v", token.Error())
		}
	}

	scheduler := control.NewScheduler(
		period, adapter, buffer, toggle.Manual, session, publish, odometer.Total, trace,
	)

	log.Printf("node ready: seq_len=%d ranges=%d rate=%.0f Hz",
		weights.SeqLen, weights.NumRanges, cfg.ControlRateHz)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("autopilot: shutdown requested")
		cancel()
	}()

	scheduler.Run(ctx)

	// Guaranteed cleanup: flush the session before releasing anything else.
	session.Close()

	if trace.Len() > 0 {
		plotPath := filepath.Join(cfg.FiguresDir, "speed_steering_plot.png")
		if err := trace.SavePlot(plotPath); err != nil {
			log.Printf("autopilot: trace plot failed: %v", err)
		} else {
			log.Printf("autopilot: trace plot saved to %s", plotPath)
		}
	}

	return nil
}

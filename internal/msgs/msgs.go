// Package msgs defines the JSON wire messages exchanged over MQTT between
// the sensor producers, the autopilot node, and the telemetry consumers.
package msgs

// LaserScan is one sweep of a rotating ranging sensor. Ranges holds one
// distance reading per angular bin; values may contain NaN/Inf straight off
// the driver and must be sanitized before use.
type LaserScan struct {
	Stamp          float64   `json:"stamp"` // capture time, seconds
	AngleMin       float64   `json:"angle_min"`
	AngleMax       float64   `json:"angle_max"`
	AngleIncrement float64   `json:"angle_increment"`
	Ranges         []float32 `json:"ranges"`
}

// PoseStamped is the particle-filter's inferred vehicle pose.
type PoseStamped struct {
	Stamp float64 `json:"stamp"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	QX    float64 `json:"qx"`
	QY    float64 `json:"qy"`
	QZ    float64 `json:"qz"`
	QW    float64 `json:"qw"`
}

// Odometry is a planar odometry sample (wheel or filter).
type Odometry struct {
	Stamp float64 `json:"stamp"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Yaw   float64 `json:"yaw"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	WZ    float64 `json:"wz"`
}

// Imu is a raw inertial sample.
type Imu struct {
	Stamp float64 `json:"stamp"`
	Ax    float64 `json:"ax"`
	Ay    float64 `json:"ay"`
	Az    float64 `json:"az"`
	Gx    float64 `json:"gx"`
	Gy    float64 `json:"gy"`
	Gz    float64 `json:"gz"`
}

// MotorImu is the processed inertial sample republished by the motor
// controller. It carries no capture stamp; consumers match it by arrival.
type MotorImu struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Ax    float64 `json:"ax"`
	Ay    float64 `json:"ay"`
	Az    float64 `json:"az"`
}

// Joy is one sample of the manual-trigger input. Buttons[0] is the mode
// toggle button.
type Joy struct {
	Stamp   float64 `json:"stamp"`
	Buttons []int   `json:"buttons"`
}

// Drive is the actuation command published once per control tick.
type Drive struct {
	Stamp         float64 `json:"stamp"`
	Speed         float64 `json:"speed"`          // m/s
	SteeringAngle float64 `json:"steering_angle"` // rad
}

package domain

// MaxZKProofSuccess caps the proof success percentage.
const MaxZKProofSuccess = 99.9

// Metrics is the aggregate marketplace bundle shown on the dashboard.
type Metrics struct {
	OpenChannels   int     `json:"open_channels"`
	StealthVolume  float64 `json:"stealth_volume"` // 24h rolling, ROS
	TasksSettled   int     `json:"tasks_settled"`
	ZKProofSuccess float64 `json:"zk_proof_success"` // percent, [0, 99.9]
}

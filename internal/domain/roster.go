package domain

import "time"

// DefaultWalletAddress is the placeholder address assigned on connect.
const DefaultWalletAddress = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

// DefaultStartingBalance is the placeholder wallet balance assigned on connect.
const DefaultStartingBalance = 42.5

// InitialSnapshot returns the fixed session roster: four robots, four tasks,
// three channels and the opening metrics, with the session disconnected.
func InitialSnapshot(network Network) Snapshot {
	return Snapshot{
		Robots: []Robot{
			{ID: "R-17", Name: "Forklift R-17", Category: RobotForklift, Reputation: 92},
			{ID: "AMR-09", Name: "AMR-09", Category: RobotAMR, Reputation: 88},
			{ID: "Viper", Name: "Drone Viper", Category: RobotDelivery, Reputation: 96},
			{ID: "HRover", Name: "Hospital Rover", Category: RobotDelivery, Reputation: 90},
		},
		Tasks: []Task{
			{ID: "TASK-884", RobotID: "R-17", Kind: "Heavy lift", Status: TaskInProgress, Reward: 4.20, ETA: Duration(2*time.Minute + 15*time.Second)},
			{ID: "TASK-885", RobotID: "Viper", Kind: "Aerial scan", Status: TaskPending, Reward: 2.10},
			{ID: "TASK-886", RobotID: "AMR-09", Kind: "Zone transfer", Status: TaskCompleted, Reward: 3.75},
			{ID: "TASK-887", RobotID: "HRover", Kind: "Sterile delivery", Status: TaskAssigned, Reward: 5.05, ETA: Duration(4*time.Minute + 12*time.Second)},
		},
		Channels: []Channel{
			{ID: "CH-001", From: "R-17", To: "AMR-09", Capacity: 12.5, Status: ChannelOpen},
			{ID: "CH-002", From: "Viper", To: "HRover", Capacity: 8.3, Status: ChannelOpen},
			{ID: "CH-003", From: "AMR-09", To: "R-17", Capacity: 5.7, Status: ChannelSettling},
		},
		Metrics: Metrics{
			OpenChannels:   18,
			StealthVolume:  212.4,
			TasksSettled:   74,
			ZKProofSuccess: 99.3,
		},
		Session: Session{Network: network},
	}
}

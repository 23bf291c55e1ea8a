package domain

// RoomStatus - lifecycle state of a room
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomStarting RoomStatus = "starting"
	RoomPlaying  RoomStatus = "playing"
	RoomResults  RoomStatus = "results"
	RoomVoting   RoomStatus = "voting"
	RoomFinished RoomStatus = "finished"
)

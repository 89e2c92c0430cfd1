package models

// SessionInfo summarizes one generation session directory for listings.
type SessionInfo struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	SceneCount    int    `json:"sceneCount"`
	HasFinalVideo bool   `json:"hasFinalVideo"`
	Timestamp     int64  `json:"timestamp"`
}

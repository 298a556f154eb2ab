package models

// Issue is the subset of a tracker issue the bot shows to users.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
}

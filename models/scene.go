package models

// Dialogue is a single spoken line within a scene. Character keys select the
// synthesis voice; Emotion is advisory free text from the editor.
type Dialogue struct {
	Character string `json:"character"`
	Text      string `json:"text"`
	Emotion   string `json:"emotion,omitempty"`
}

// Scene is one ordered unit of the storyboard as submitted by the editor.
// The scene list itself is never persisted server-side; it only exists in
// the request payload and in the artifacts it produces.
type Scene struct {
	SceneDirection string     `json:"sceneDirection"`
	Dialogues      []Dialogue `json:"dialogues"`
	AudioDirection string     `json:"audioDirection"`
	ThumbnailURL   string     `json:"thumbnailUrl,omitempty"`
	VideoURL       string     `json:"videoUrl,omitempty"`

	// IsLastFrame is round-tripped for the editor's continuation technique;
	// no generation parameter consumes it.
	IsLastFrame bool `json:"isLastFrame,omitempty"`
}

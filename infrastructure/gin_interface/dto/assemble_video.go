package dto

type AssembleVideoRequest struct {
	Force bool `json:"force"`
}

type AssembleVideoResponse struct {
	VideoURL      string `json:"video_url"`
	MissingScenes []int  `json:"missing_scenes,omitempty"`
}

package dto

type WeightedImageRequest struct {
	URL    string  `json:"url" binding:"required"`
	Weight float64 `json:"weight"`
}

type ReferenceImageRequest struct {
	URL    string  `json:"url" binding:"required"`
	Weight float64 `json:"weight"`
	Prompt string  `json:"prompt"`
}

type RunSelectionRequest struct {
	CharacterImage  *ReferenceImageRequest  `json:"character_image"`
	ReferenceImages []ReferenceImageRequest `json:"reference_images"`
	ReferenceTexts  []string                `json:"reference_texts"`
}

type CreateRunRequest struct {
	DraftID   string              `json:"draft_id" binding:"required"`
	Selection RunSelectionRequest `json:"selection"`
	Decompose bool                `json:"decompose"`
}

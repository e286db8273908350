package dto

type UpdateKeyframeRequest struct {
	Prompt         *string                `json:"prompt"`
	SelectedImages []WeightedImageRequest `json:"selected_images"`
}

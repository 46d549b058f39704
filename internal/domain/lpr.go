package domain

// PlateDetectionRequestDTO carries a base64-encoded camera frame.
type PlateDetectionRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	// Optional: park the detected plate straight into this spot.
	SpotID int `json:"spot_id,omitempty"`
}

type PlateDetectionResponseDTO struct {
	DetectedPlate string      `json:"detected_plate"`
	Confidence    float32     `json:"confidence,omitempty"`
	Parked        *ParkResult `json:"parked,omitempty"`
}

package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
)

// TextDetector is the part of the Rekognition client the plate reader uses.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Indian registration formats: state series (MH12AB1234) and Bharat series (22BH1234AB).
var platePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-Z]{0,3}[0-9]{4}$`),
	regexp.MustCompile(`^[0-9]{2}BH[0-9]{4}[A-Z]{1,2}$`),
}

var ErrPlateNotRecognized = newError(ErrInvalidInput, "No license plate recognized in image")

type LPRService struct {
	detector  TextDetector
	occupancy *OccupancyService
	logger    *logrus.Logger
}

func NewLPRService(detector TextDetector, occupancy *OccupancyService, logger *logrus.Logger) *LPRService {
	return &LPRService{detector: detector, occupancy: occupancy, logger: logger}
}

// ReadPlate runs text detection on the image and returns the plate-shaped
// text with the highest confidence.
func (s *LPRService) ReadPlate(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if len(imageBytes) == 0 {
		return "", 0, newError(ErrInvalidInput, "Image is required")
	}

	result, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		return "", 0, fmt.Errorf("rekognition DetectText: %w", err)
	}

	var best string
	var bestConfidence float32
	var seen []string
	for _, td := range result.TextDetections {
		if td.DetectedText == nil || td.Confidence == nil {
			continue
		}
		if td.Type != types.TextTypesLine && td.Type != types.TextTypesWord {
			continue
		}
		txt := domain.NormalizePlate(strings.NewReplacer("-", "", ".", "").Replace(*td.DetectedText))
		seen = append(seen, txt)
		if looksLikePlate(txt) && *td.Confidence > bestConfidence {
			best, bestConfidence = txt, *td.Confidence
		}
	}

	if best == "" {
		s.logger.WithField("detections", strings.Join(seen, ",")).Info("no plate matched in image")
		return "", 0, ErrPlateNotRecognized
	}
	s.logger.WithFields(logrus.Fields{"plate": best, "confidence": bestConfidence}).Info("plate recognized")
	return best, bestConfidence, nil
}

func looksLikePlate(s string) bool {
	for _, re := range platePatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// DetectAndPark reads the plate and, when a spot is given, parks the vehicle there.
func (s *LPRService) DetectAndPark(ctx context.Context, userID int, dto domain.PlateDetectionRequestDTO) (*domain.PlateDetectionResponseDTO, error) {
	raw := dto.ImageBase64
	if i := strings.Index(raw, ","); i >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[i+1:]
	}
	imageBytes, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, newError(ErrInvalidInput, "Image must be base64 encoded")
	}

	plate, confidence, err := s.ReadPlate(ctx, imageBytes)
	if err != nil {
		return nil, err
	}
	resp := &domain.PlateDetectionResponseDTO{DetectedPlate: plate, Confidence: confidence}
	if dto.SpotID > 0 {
		parked, err := s.occupancy.Park(ctx, userID, plate, dto.SpotID)
		if err != nil {
			return nil, err
		}
		resp.Parked = parked
	}
	return resp, nil
}

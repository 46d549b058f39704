package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
)

type fakeDetector struct {
	detections []types.TextDetection
}

func (d *fakeDetector) DetectText(_ context.Context, params *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	return &rekognition.DetectTextOutput{TextDetections: d.detections}, nil
}

func line(text string, confidence float32) types.TextDetection {
	return types.TextDetection{DetectedText: aws.String(text), Confidence: aws.Float32(confidence), Type: types.TextTypesLine}
}

func TestReadPlatePicksMostConfidentMatch(t *testing.T) {
	f := newFixture(t)
	detector := &fakeDetector{detections: []types.TextDetection{
		line("IND", 99),
		line("MH 12 AB 1234", 91),
		line("MH12-AB-1235", 95),
		line("22 BH 1234 AA", 80),
	}}
	lpr := NewLPRService(detector, f.occupancy, f.auth.logger)

	plate, confidence, err := lpr.ReadPlate(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "MH12AB1235", plate)
	assert.Equal(t, float32(95), confidence)

	detector.detections = []types.TextDetection{line("HELLO", 99)}
	_, _, err = lpr.ReadPlate(context.Background(), []byte("jpeg"))
	assert.ErrorIs(t, err, ErrPlateNotRecognized)

	_, _, err = lpr.ReadPlate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDetectAndPark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	lot := f.lot(t, "Central", 10, 1)
	detector := &fakeDetector{detections: []types.TextDetection{line("KA01XY0001", 97)}}
	lpr := NewLPRService(detector, f.occupancy, f.auth.logger)

	image := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg"))
	resp, err := lpr.DetectAndPark(ctx, alice.ID, domain.PlateDetectionRequestDTO{
		ImageBase64: image,
		SpotID:      f.spotNumbered(t, lot.ID, 1).ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "KA01XY0001", resp.DetectedPlate)
	require.NotNil(t, resp.Parked)
	assert.Equal(t, 1, resp.Parked.SpotNumber)

	_, err = lpr.DetectAndPark(ctx, alice.ID, domain.PlateDetectionRequestDTO{ImageBase64: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

package segment

import (
	"errors"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// ErrNotInitialized is returned when a session is created before Initialize.
var ErrNotInitialized = errors.New("ONNX Runtime not initialized, call Initialize() first")

// Config describes the hair segmentation model.
type Config struct {
	ModelPath  string
	InputName  string
	OutputName string
	InputSize  int // square model input
	Classes    int // output channels
	HairClass  int
	Threshold  float64
}

// DefaultConfig matches a 256x256 single-channel hair matting model.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		InputName:  "input",
		OutputName: "output",
		InputSize:  256,
		Classes:    1,
		HairClass:  0,
		Threshold:  0.5,
	}
}

// HairSegmenter runs the model on frames.
type HairSegmenter struct {
	cfg     Config
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewHairSegmenter creates a session for the model. Initialize must have
// been called.
func NewHairSegmenter(cfg Config) (*HairSegmenter, error) {
	if !isInitialized() {
		return nil, ErrNotInitialized
	}
	if cfg.InputSize <= 0 || cfg.Classes <= 0 {
		return nil, fmt.Errorf("invalid segmentation model shape %d/%d", cfg.InputSize, cfg.Classes)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", cfg.ModelPath, err)
	}

	return &HairSegmenter{cfg: cfg, session: session}, nil
}

// Segment returns the hair mask for a BGR frame.
func (s *HairSegmenter) Segment(frame gocv.Mat) (*Mask, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}
	size := s.cfg.InputSize

	// NCHW float blob, RGB, scaled to [0,1].
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read input blob: %w", err)
	}
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), append([]float32(nil), data...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(s.cfg.Classes), int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	s.mu.Lock()
	err = s.session.Run([]ort.Value{input}, []ort.Value{output})
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("segmentation inference failed: %w", err)
	}

	return FromScores(output.GetData(), s.cfg.Classes, size, size, s.cfg.HairClass, s.cfg.Threshold, frame.Cols(), frame.Rows()), nil
}

// Close releases the session.
func (s *HairSegmenter) Close() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}

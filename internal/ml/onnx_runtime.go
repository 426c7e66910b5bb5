package ml

import (
	onnxruntime "github.com/yalue/onnxruntime_go"

	"leadscore/pkg/errors"
)

// Binary classifier output layout: class 0 is not-enrolled, class 1 is
// enrolled. The probabilities tensor has one column per class.
const numClasses = 2

// ONNXModel wraps an ONNX Runtime session for classifier inference
type ONNXModel struct {
	session     *onnxruntime.DynamicAdvancedSession
	inputName   string
	outputNames []string
}

// LoadONNXModel loads the enrollment classifier from file
func LoadONNXModel(modelPath string) (*ONNXModel, error) {
	// Initialize ONNX runtime environment (only once)
	err := onnxruntime.InitializeEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX runtime")
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	// Dynamic session allows runtime tensor creation, so batch size is
	// decided per call.
	// Input: "input" (feature matrix)
	// Outputs: "output" (predicted class), "probabilities" (class probabilities)
	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"output", "probabilities"}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ONNX model")
	}

	return &ONNXModel{
		session:     session,
		inputName:   "input",
		outputNames: []string{"output", "probabilities"},
	}, nil
}

// PredictProba runs batch inference and returns, per row, the probability
// of the positive (enrolled) class. All rows must have the same width.
func (m *ONNXModel) PredictProba(rows [][]float64) ([]float64, error) {
	if m.session == nil {
		return nil, errors.ErrModelNotLoaded
	}
	if len(rows) == 0 {
		return []float64{}, nil
	}

	numFeatures := len(rows[0])
	flat := make([]float64, 0, len(rows)*numFeatures)
	for i, row := range rows {
		if len(row) != numFeatures {
			return nil, errors.Wrapf(errors.ErrMalformedRecord,
				"row %d has %d features, expected %d", i, len(row), numFeatures)
		}
		flat = append(flat, row...)
	}

	// Input tensor: shape [batch, num_features]
	inputShape := onnxruntime.NewShape(int64(len(rows)), int64(numFeatures))
	inputTensor, err := onnxruntime.NewTensor(inputShape, flat)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	// Output 1: predicted class (int64, shape [batch])
	classOutput := make([]int64, len(rows))
	classShape := onnxruntime.NewShape(int64(len(rows)))
	classTensor, err := onnxruntime.NewTensor(classShape, classOutput)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create class output tensor")
	}
	defer classTensor.Destroy()

	// Output 2: probabilities (float64, shape [batch, num_classes])
	probOutput := make([]float64, len(rows)*numClasses)
	probShape := onnxruntime.NewShape(int64(len(rows)), int64(numClasses))
	probTensor, err := onnxruntime.NewTensor(probShape, probOutput)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create probabilities output tensor")
	}
	defer probTensor.Destroy()

	inputs := []onnxruntime.Value{inputTensor}
	outputs := []onnxruntime.Value{classTensor, probTensor}
	if err := m.session.Run(inputs, outputs); err != nil {
		return nil, errors.Wrap(errors.ErrInferenceFailed, err.Error())
	}

	// Column 1 of the probabilities tensor is the positive class
	probs := make([]float64, len(rows))
	for i := range rows {
		probs[i] = probOutput[i*numClasses+1]
	}
	return probs, nil
}

// Destroy cleans up the ONNX session
func (m *ONNXModel) Destroy() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}

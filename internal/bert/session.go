package bert

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization. The runtime itself is
// process-wide; sessions opened on top of it are individually owned and
// closed by their callers.
var ortEnv struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Session wraps an ONNX inference session for a BERT-style model taking
// input_ids / attention_mask / token_type_ids. The output may be per-token
// hidden states [batch, seq, dim] (embedding models) or pooled logits
// [batch, labels] (sequence classification models).
type Session struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	outputDims []int64
}

// OpenSession loads the model and validates its tensor layout. The ONNX
// Runtime shared library is expected alongside the model file.
func OpenSession(modelPath string) (*Session, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("bert: initialize onnx runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("bert: read model info: %w", err)
	}

	inputNames, err := validateInputs(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("bert: model has no outputs")
	}
	outputName := outputs[0].Name
	outputDims := append([]int64(nil), outputs[0].Dimensions...)
	if len(outputDims) != 2 && len(outputDims) != 3 {
		return nil, fmt.Errorf("bert: expected 2D or 3D output tensor, got %v", outputDims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("bert: create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("bert: create session: %w", err)
	}

	return &Session{
		session:    session,
		inputNames: inputNames,
		outputName: outputName,
		outputDims: outputDims,
	}, nil
}

func validateInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	nameSet := make(map[string]bool, len(inputs))
	for _, inp := range inputs {
		nameSet[inp.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !nameSet[name] {
			return nil, fmt.Errorf("bert: model missing required input %q", name)
		}
	}
	return required, nil
}

// HiddenDim returns the last output dimension for 3D-output models, 0 for
// classification models.
func (s *Session) HiddenDim() int64 {
	if len(s.outputDims) == 3 {
		return s.outputDims[2]
	}
	return 0
}

// LabelDim returns the label count for 2D-output models, 0 otherwise.
func (s *Session) LabelDim() int64 {
	if len(s.outputDims) == 2 {
		return s.outputDims[1]
	}
	return 0
}

// Infer runs one forward pass over the batch and returns the flat output
// tensor data.
func (s *Session) Infer(b Batch) ([]float32, error) {
	shape := ort.NewShape(b.Size, b.SeqLen)

	tIDs, err := ort.NewTensor(shape, b.InputIDs)
	if err != nil {
		return nil, fmt.Errorf("bert: create input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, b.AttentionMask)
	if err != nil {
		return nil, fmt.Errorf("bert: create attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(shape, b.TokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("bert: create token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	outDims := append([]int64(nil), s.outputDims...)
	outDims[0] = b.Size
	for i := 1; i < len(outDims); i++ {
		if outDims[i] < 0 {
			outDims[i] = b.SeqLen
		}
	}
	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(outDims...))
	if err != nil {
		return nil, fmt.Errorf("bert: create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run([]ort.Value{tIDs, tMask, tTypes}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("bert: inference failed: %w", err)
	}

	src := tOut.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

// Close releases the session's native resources. The scheduler relies on
// this to free model memory between pipeline phases.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

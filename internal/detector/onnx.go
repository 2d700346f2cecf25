package detector

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/roomlens/roomlens-go/internal/conf"
)

// Model I/O names fixed by the detection model contract.
var (
	modelInputNames  = []string{"images", "orig_target_sizes"}
	modelOutputNames = []string{"labels", "boxes", "scores"}
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initializes the onnxruntime environment exactly once per
// process. An explicit library path wins over the platform default.
func initRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = defaultSharedLibPath()
		}
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

func defaultSharedLibPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "/usr/local/lib/libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		if runtime.GOARCH == "arm64" {
			return "/usr/lib/libonnxruntime_arm64.so"
		}
		return "/usr/lib/libonnxruntime.so"
	}
}

// onnxEngine runs the detection model through onnxruntime. The session has
// dynamic output shapes, so output tensors are allocated per run and
// destroyed afterwards.
type onnxEngine struct {
	session *ort.DynamicAdvancedSession
}

func newONNXEngine(modelData []byte, settings conf.DetectorSettings) (*onnxEngine, error) {
	if err := initRuntime(settings.LibraryPath); err != nil {
		return nil, fmt.Errorf("onnxruntime environment: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()

	if settings.Threads > 0 {
		if err := opts.SetIntraOpNumThreads(settings.Threads); err != nil {
			return nil, fmt.Errorf("intra-op threads: %w", err)
		}
		if err := opts.SetInterOpNumThreads(settings.Threads); err != nil {
			return nil, fmt.Errorf("inter-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(
		modelData, modelInputNames, modelOutputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &onnxEngine{session: session}, nil
}

func (e *onnxEngine) Run(ctx context.Context, feeds Feeds) (RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return RawOutput{}, err
	}

	imagesTensor, err := ort.NewTensor(ort.NewShape(feeds.ImagesShape...), feeds.Images)
	if err != nil {
		return RawOutput{}, fmt.Errorf("images tensor: %w", err)
	}
	defer imagesTensor.Destroy()

	sizesTensor, err := ort.NewTensor(ort.NewShape(feeds.TargetSizesShape...), feeds.TargetSizes)
	if err != nil {
		return RawOutput{}, fmt.Errorf("target sizes tensor: %w", err)
	}
	defer sizesTensor.Destroy()

	outputs := []ort.Value{nil, nil, nil}
	if err := e.session.Run([]ort.Value{imagesTensor, sizesTensor}, outputs); err != nil {
		return RawOutput{}, fmt.Errorf("session run: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	labels, err := labelValues(outputs[0])
	if err != nil {
		return RawOutput{}, err
	}
	boxes, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return RawOutput{}, fmt.Errorf("unexpected boxes output type %T", outputs[1])
	}
	scores, ok := outputs[2].(*ort.Tensor[float32])
	if !ok {
		return RawOutput{}, fmt.Errorf("unexpected scores output type %T", outputs[2])
	}

	// Tensor buffers die with the output values, copy them out.
	return RawOutput{
		Labels: labels,
		Boxes:  append([]float32(nil), boxes.GetData()...),
		Scores: append([]float32(nil), scores.GetData()...),
	}, nil
}

// labelValues reads the labels output, which some model exports emit as
// int64 and others as float32. Both are accepted and converted to plain
// integer indices here.
func labelValues(value ort.Value) ([]int64, error) {
	switch t := value.(type) {
	case *ort.Tensor[int64]:
		return append([]int64(nil), t.GetData()...), nil
	case *ort.Tensor[float32]:
		data := t.GetData()
		labels := make([]int64, len(data))
		for i, v := range data {
			labels[i] = int64(v)
		}
		return labels, nil
	default:
		return nil, fmt.Errorf("unexpected labels output type %T", value)
	}
}

func (e *onnxEngine) Close() error {
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}

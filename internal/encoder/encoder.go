package encoder

import (
	"context"
	"fmt"

	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

// VectorEncoder turns texts into fixed-dimension embedding vectors. The
// instance owns model resources for the duration of a pipeline phase; Close
// releases them and the scheduler calls it before loading the pair scorer.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// DimensionMismatchError means the encoder's output dimension does not match
// the configured vector-store dimension. Fatal: the run aborts before any
// mapping is attempted.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("encoder output dimension %d does not match configured vector-store dimension %d", e.Got, e.Want)
}

// New constructs the provider selected by config.
func New(cfg config.EncoderConfig, log *logger.Logger) (VectorEncoder, error) {
	switch cfg.Provider {
	case config.EncoderProviderONNX:
		return NewONNXEncoder(cfg, log)
	case config.EncoderProviderRemote:
		return NewRemoteEncoder(cfg, log)
	default:
		return nil, fmt.Errorf("encoder: unknown provider %q", cfg.Provider)
	}
}

// CheckDim enforces the configured vector-store dimension against the
// encoder's actual output. want <= 0 disables the check.
func CheckDim(enc VectorEncoder, want int) error {
	if want <= 0 {
		return nil
	}
	if got := enc.Dim(); got != want {
		return &DimensionMismatchError{Got: got, Want: want}
	}
	return nil
}

package encoder

import (
	"context"
	"fmt"

	"github.com/hungdynguyen/skillgraph-backend/internal/bert"
	"github.com/hungdynguyen/skillgraph-backend/internal/config"
	"github.com/hungdynguyen/skillgraph-backend/internal/platform/logger"
)

const onnxMaxSeqLen = 128

// ONNXEncoder embeds text with a local BERT-style ONNX model:
// tokenize → inference → mean pool.
type ONNXEncoder struct {
	session   *bert.Session
	tok       *bert.Tokenizer
	batchSize int
	dim       int
	log       *logger.Logger
}

func NewONNXEncoder(cfg config.EncoderConfig, log *logger.Logger) (*ONNXEncoder, error) {
	session, err := bert.OpenSession(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	dim := session.HiddenDim()
	if dim <= 0 {
		_ = session.Close()
		return nil, fmt.Errorf("encoder: model %s is not an embedding model (no hidden-state output)", cfg.ModelPath)
	}

	tok, err := bert.NewTokenizer(cfg.VocabPath, onnxMaxSeqLen)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("encoder: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 32
	}

	encLog := log.With("service", "ONNXEncoder")
	encLog.Info("Loaded embedding model", "model", cfg.ModelPath, "dim", dim, "batch_size", batchSize)

	return &ONNXEncoder{
		session:   session,
		tok:       tok,
		batchSize: batchSize,
		dim:       int(dim),
		log:       encLog,
	}, nil
}

func (e *ONNXEncoder) Dim() int { return e.dim }

func (e *ONNXEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := e.tok.EncodeBatch(texts[start:end])
		hidden, err := e.session.Infer(batch)
		if err != nil {
			return nil, fmt.Errorf("encoder: batch [%d:%d]: %w", start, end, err)
		}

		pooled := bert.MeanPool(hidden, batch.AttentionMask, batch.Size, batch.SeqLen, int64(e.dim))
		out = append(out, pooled...)
	}
	return out, nil
}

// Close destroys the inference session, releasing model memory.
func (e *ONNXEncoder) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Close()
	e.session = nil
	return err
}

//go:build cgo
// +build cgo

package qa

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXReader runs an extractive question-answering model (BERT with
// start/end logit heads) through ONNX Runtime.
type ONNXReader struct {
	session   *ort.AdvancedSession
	maxTokens int
	maxAnswer int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	startLogits   *ort.Tensor[float32]
	endLogits     *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXReader loads the model at modelPath. maxAnswer bounds the span length in words.
func NewONNXReader(modelPath string, maxTokens, maxAnswer int) (*ONNXReader, error) {
	if maxTokens < 8 {
		return nil, fmt.Errorf("qa max_tokens must be at least 8, got %d", maxTokens)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	r := &ONNXReader{maxTokens: maxTokens, maxAnswer: maxAnswer}
	shape := ort.NewShape(1, int64(maxTokens))
	var err error
	if r.inputIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if r.attentionMask, err = ort.NewEmptyTensor[int64](shape); err != nil {
		r.destroyTensors()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if r.tokenTypeIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		r.destroyTensors()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if r.startLogits, err = ort.NewEmptyTensor[float32](shape); err != nil {
		r.destroyTensors()
		return nil, fmt.Errorf("failed to create start_logits tensor: %w", err)
	}
	if r.endLogits, err = ort.NewEmptyTensor[float32](shape); err != nil {
		r.destroyTensors()
		return nil, fmt.Errorf("failed to create end_logits tensor: %w", err)
	}

	r.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"start_logits", "end_logits"},
		[]ort.ArbitraryTensor{r.inputIDs, r.attentionMask, r.tokenTypeIDs},
		[]ort.ArbitraryTensor{r.startLogits, r.endLogits},
		nil,
	)
	if err != nil {
		r.destroyTensors()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return r, nil
}

// Answer returns the most probable passage span for question.
func (r *ONNXReader) Answer(ctx context.Context, question, passage string) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}
	enc := encodePair(question, passage, r.maxTokens)
	if len(enc.spans) == 0 {
		return Answer{}, ErrNoAnswer
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Answer{}, fmt.Errorf("qa reader is closed")
	}
	copy(r.inputIDs.GetData(), enc.inputIDs)
	copy(r.attentionMask.GetData(), enc.attentionMask)
	copy(r.tokenTypeIDs.GetData(), enc.tokenTypeIDs)
	if err := r.session.Run(); err != nil {
		return Answer{}, fmt.Errorf("qa inference failed: %w", err)
	}

	s, e, score := bestSpan(r.startLogits.GetData(), r.endLogits.GetData(), enc.first, len(enc.spans), r.maxAnswer)
	if s < 0 {
		return Answer{}, ErrNoAnswer
	}
	return Answer{Text: passage[enc.spans[s][0]:enc.spans[e][1]], Score: score}, nil
}

// Close destroys the session and tensors.
func (r *ONNXReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.session != nil {
		err = r.session.Destroy()
		r.session = nil
	}
	r.destroyTensors()
	return err
}

func (r *ONNXReader) destroyTensors() {
	if r.inputIDs != nil {
		_ = r.inputIDs.Destroy()
	}
	if r.attentionMask != nil {
		_ = r.attentionMask.Destroy()
	}
	if r.tokenTypeIDs != nil {
		_ = r.tokenTypeIDs.Destroy()
	}
	if r.startLogits != nil {
		_ = r.startLogits.Destroy()
	}
	if r.endLogits != nil {
		_ = r.endLogits.Destroy()
	}
	r.inputIDs, r.attentionMask, r.tokenTypeIDs, r.startLogits, r.endLogits = nil, nil, nil, nil, nil
}

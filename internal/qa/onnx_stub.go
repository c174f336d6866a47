//go:build !cgo
// +build !cgo

package qa

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("ONNX reader requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXReader stub type when built without CGO (see onnx.go for real implementation).
type ONNXReader struct{}

// NewONNXReader returns an error when built without CGO.
func NewONNXReader(_ string, _, _ int) (*ONNXReader, error) {
	return nil, errONNXUnavailable
}

func (r *ONNXReader) Answer(context.Context, string, string) (Answer, error) {
	return Answer{}, errONNXUnavailable
}

func (r *ONNXReader) Close() error { return nil }

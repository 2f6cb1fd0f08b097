//go:build !onnx

package adapter

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/model"
)

// NewLocal reports the missing optional dependency when the binary was
// built without ONNX Runtime support. Failing here, at first use, keeps a
// misconfigured local backend from blocking startup of a process that
// never embeds.
func NewLocal(modelPath, tokenizerPath, libraryPath string) (Embedding, error) {
	return nil, goerr.New("local embedding backend requires building with -tags onnx",
		goerr.T(model.TagConfiguration))
}

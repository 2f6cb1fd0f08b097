//go:build onnx

package adapter

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/model"
	ort "github.com/yalue/onnxruntime_go"
)

// maxSequenceLength is the token window of MiniLM-class models.
const maxSequenceLength = 128

type localEmbedding struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *wordPieceTokenizer
}

// NewLocal runs a sentence-embedding ONNX model in-process. The runtime
// library and model files are probed at construction; any missing piece is
// a configuration error rather than a crash at first inference.
func NewLocal(modelPath, tokenizerPath, libraryPath string) (Embedding, error) {
	if modelPath == "" || tokenizerPath == "" {
		return nil, goerr.New("onnx model and tokenizer paths are required",
			goerr.T(model.TagConfiguration),
			goerr.V("model_path", modelPath), goerr.V("tokenizer_path", tokenizerPath))
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, goerr.Wrap(err, "onnxruntime is not available",
				goerr.T(model.TagConfiguration), goerr.V("library_path", libraryPath))
		}
	}

	tokenizer, err := loadWordPieceTokenizer(tokenizerPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load tokenizer",
			goerr.T(model.TagConfiguration), goerr.V("path", tokenizerPath))
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load onnx model",
			goerr.T(model.TagConfiguration), goerr.V("path", modelPath))
	}

	return &localEmbedding{session: session, tokenizer: tokenizer}, nil
}

func (l *localEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	inputIDs := make([]int64, maxSequenceLength)
	attentionMask := make([]int64, maxSequenceLength)
	tokenTypeIDs := make([]int64, maxSequenceLength)

	tokens := l.tokenizer.tokenize(text)
	if len(tokens) > maxSequenceLength-2 {
		tokens = tokens[:maxSequenceLength-2]
	}

	inputIDs[0] = l.tokenizer.cls
	attentionMask[0] = 1
	for i, tok := range tokens {
		inputIDs[i+1] = tok
		attentionMask[i+1] = 1
	}
	inputIDs[len(tokens)+1] = l.tokenizer.sep
	attentionMask[len(tokens)+1] = 1

	shape := ort.NewShape(1, maxSequenceLength)
	inputs := make([]ort.Value, 0, 3)
	for _, data := range [][]int64{inputIDs, attentionMask, tokenTypeIDs} {
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			for _, in := range inputs {
				in.Destroy()
			}
			return nil, goerr.Wrap(err, "failed to create input tensor")
		}
		inputs = append(inputs, tensor)
	}
	defer func() {
		for _, in := range inputs {
			in.Destroy()
		}
	}()

	outputs := []ort.Value{nil}
	if err := l.session.Run(inputs, outputs); err != nil {
		return nil, goerr.Wrap(err, "onnx inference failed", goerr.T(model.TagUnavailable))
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, goerr.New("unexpected onnx output tensor type")
	}

	return meanPool(tensor.GetData(), tensor.GetShape(), attentionMask)
}

func (l *localEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := l.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (l *localEmbedding) Dimension() int {
	return LocalDimension
}

// meanPool reduces [1, seq, hidden] hidden states to a normalized [hidden]
// vector, averaging only attended positions. A [1, hidden] output is
// already pooled by the model and is used as-is.
func meanPool(data []float32, shape []int64, attentionMask []int64) ([]float32, error) {
	switch len(shape) {
	case 2:
		if int(shape[1]) != LocalDimension {
			return nil, goerr.New("unexpected hidden size",
				goerr.V("got", shape[1]), goerr.V("want", LocalDimension))
		}
		vec := make([]float32, LocalDimension)
		copy(vec, data[:LocalDimension])
		return normalize(vec), nil

	case 3:
		seqLen, hidden := int(shape[1]), int(shape[2])
		if hidden != LocalDimension {
			return nil, goerr.New("unexpected hidden size",
				goerr.V("got", hidden), goerr.V("want", LocalDimension))
		}
		vec := make([]float32, hidden)
		var attended float32
		for i := 0; i < seqLen; i++ {
			if i >= len(attentionMask) || attentionMask[i] == 0 {
				continue
			}
			attended++
			for j := 0; j < hidden; j++ {
				vec[j] += data[i*hidden+j]
			}
		}
		if attended == 0 {
			return nil, goerr.New("no attended tokens in input")
		}
		for j := range vec {
			vec[j] /= attended
		}
		return normalize(vec), nil

	default:
		return nil, goerr.New("unexpected onnx output shape", goerr.V("shape", shape))
	}
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// wordPieceTokenizer implements BERT-style WordPiece tokenization from a
// HuggingFace tokenizer.json vocabulary.
type wordPieceTokenizer struct {
	vocab map[string]int
	cls   int64
	sep   int64
	unk   int64
}

func loadWordPieceTokenizer(path string) (*wordPieceTokenizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if len(file.Model.Vocab) == 0 {
		return nil, goerr.New("tokenizer vocabulary is empty")
	}

	return &wordPieceTokenizer{
		vocab: file.Model.Vocab,
		cls:   101,
		sep:   102,
		unk:   100,
	}, nil
}

func (t *wordPieceTokenizer) tokenize(text string) []int64 {
	var tokens []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		tokens = append(tokens, t.subwords(word)...)
	}
	return tokens
}

// subwords greedily matches the longest vocabulary prefix, marking
// continuations with the "##" prefix.
func (t *wordPieceTokenizer) subwords(word string) []int64 {
	var out []int64
	start := 0
	for start < len(word) {
		end := len(word)
		matched := false
		for end > start {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				out = append(out, int64(id))
				start = end
				matched = true
				break
			}
			end--
		}
		if !matched {
			out = append(out, t.unk)
			start++
		}
	}
	return out
}

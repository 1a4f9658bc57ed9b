package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	bartTokenizerFile = "tokenizer.json"
	bartEncoderFile   = "encoder_model.onnx"
	bartDecoderFile   = "decoder_model.onnx"

	// Special token ids and generation defaults of facebook/bart-large-cnn.
	bartBOSID              int64 = 0
	bartEOSID              int64 = 2
	bartDecoderStartID     int64 = 2
	bartNoRepeatNgramSize        = 3
)

// BARTConfig points at an ONNX export of a BART summarization model
// (tokenizer.json, encoder_model.onnx and decoder_model.onnx in ModelDir).
type BARTConfig struct {
	ModelDir string
	// SharedLibraryPath overrides the onnxruntime shared library location.
	SharedLibraryPath string
}

// BARTSummarizer runs the encode, generate and decode steps locally.
// It is expensive to build and is meant to be created once per process.
type BARTSummarizer struct {
	mu        sync.Mutex
	tokenizer *tokenizer.Tokenizer
	encoder   *ort.DynamicAdvancedSession
	decoder   *ort.DynamicAdvancedSession
	log       *slog.Logger
}

func NewBARTSummarizer(cfg BARTConfig, log *slog.Logger) (*BARTSummarizer, error) {
	modelDir := strings.TrimSpace(cfg.ModelDir)
	if modelDir == "" {
		return nil, errors.New("model dir is empty")
	}

	tok, err := pretrained.FromFile(filepath.Join(modelDir, bartTokenizerFile))
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}

	if !ort.IsInitialized() {
		if err = ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize ONNX environment: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()

	if err = opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}

	encoder, err := ort.NewDynamicAdvancedSession(
		filepath.Join(modelDir, bartEncoderFile),
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create encoder session: %w", err)
	}

	decoder, err := ort.NewDynamicAdvancedSession(
		filepath.Join(modelDir, bartDecoderFile),
		[]string{"input_ids", "encoder_attention_mask", "encoder_hidden_states"},
		[]string{"logits"},
		opts,
	)
	if err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("create decoder session: %w", err)
	}

	log.Info("BART model is loaded",
		"modelDir", modelDir)

	return &BARTSummarizer{
		tokenizer: tok,
		encoder:   encoder,
		decoder:   decoder,
		log:       log,
	}, nil
}

func (s *BARTSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	if strings.TrimSpace(input.Text) == "" {
		return "", ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	inputIDs, err := s.encode(input.Text, input.Params.MaxInputTokens)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	hidden, hiddenSize, err := s.runEncoder(inputIDs)
	if err != nil {
		return "", fmt.Errorf("run encoder: %w", err)
	}

	step := s.decoderStep(inputIDs, hidden, hiddenSize)

	outputIDs, err := beamSearch(ctx, step, beamConfig{
		Params:            input.Params,
		decoderStartID:    bartDecoderStartID,
		bosID:             bartBOSID,
		eosID:             bartEOSID,
		forcedBOS:         true,
		forcedEOS:         true,
		noRepeatNgramSize: bartNoRepeatNgramSize,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	summary := s.decode(outputIDs)

	s.log.DebugContext(ctx, "Summary is generated",
		"inputTokens", len(inputIDs),
		"outputTokens", len(outputIDs),
		"elapsed", time.Since(start))

	return summary, nil
}

func (s *BARTSummarizer) encode(text string, maxTokens int) ([]int64, error) {
	encoding, err := s.tokenizer.EncodeSingle(text, true)
	if err != nil {
		return nil, err
	}

	ids := encoding.GetIds()
	if len(ids) == 0 {
		return nil, ErrEmptyInput
	}

	return truncateIDs(ids, maxTokens), nil
}

// truncateIDs caps ids at maxTokens, keeping the closing EOS when it cuts.
// A non-positive maxTokens keeps every id.
func truncateIDs(ids []int, maxTokens int) []int64 {
	n := len(ids)
	if maxTokens > 0 && n > maxTokens {
		n = maxTokens
	}

	out := make([]int64, n)
	for i := range n {
		out[i] = int64(ids[i])
	}

	if n > 0 && n < len(ids) {
		out[n-1] = bartEOSID
	}

	return out
}

func (s *BARTSummarizer) decode(ids []int64) string {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}

	return s.tokenizer.Decode(out, true)
}

func (s *BARTSummarizer) runEncoder(inputIDs []int64) ([]float32, int64, error) {
	seqLen := int64(len(inputIDs))

	mask := make([]int64, len(inputIDs))
	for i := range mask {
		mask[i] = 1
	}

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), inputIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer inputIDsTensor.Destroy()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), mask)
	if err != nil {
		return nil, 0, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err = s.encoder.Run([]ort.Value{inputIDsTensor, maskTensor}, outputs); err != nil {
		return nil, 0, fmt.Errorf("inference: %w", err)
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, errors.New("encoder output is not a float32 tensor")
	}

	// [1, seq_len, hidden_size]
	shape := outputTensor.GetShape()
	if len(shape) != 3 {
		return nil, 0, fmt.Errorf("unexpected encoder output shape %v", shape)
	}

	data := outputTensor.GetData()
	hidden := make([]float32, len(data))
	copy(hidden, data)

	return hidden, shape[2], nil
}

// decoderStep runs the full decoder over every beam on each call; the export
// has no past key values so nothing is carried between steps.
func (s *BARTSummarizer) decoderStep(inputIDs []int64, hidden []float32, hiddenSize int64) stepFunc {
	srcLen := int64(len(inputIDs))

	return func(_ context.Context, seqs [][]int64) ([][]float32, error) {
		batch := int64(len(seqs))
		curLen := int64(len(seqs[0]))

		decoderIDs := make([]int64, 0, batch*curLen)
		for _, seq := range seqs {
			decoderIDs = append(decoderIDs, seq...)
		}

		mask := make([]int64, batch*srcLen)
		for i := range mask {
			mask[i] = 1
		}

		states := make([]float32, 0, int64(len(hidden))*batch)
		for range batch {
			states = append(states, hidden...)
		}

		decoderIDsTensor, err := ort.NewTensor(ort.NewShape(batch, curLen), decoderIDs)
		if err != nil {
			return nil, fmt.Errorf("create input_ids tensor: %w", err)
		}
		defer decoderIDsTensor.Destroy()

		maskTensor, err := ort.NewTensor(ort.NewShape(batch, srcLen), mask)
		if err != nil {
			return nil, fmt.Errorf("create encoder_attention_mask tensor: %w", err)
		}
		defer maskTensor.Destroy()

		statesTensor, err := ort.NewTensor(ort.NewShape(batch, srcLen, hiddenSize), states)
		if err != nil {
			return nil, fmt.Errorf("create encoder_hidden_states tensor: %w", err)
		}
		defer statesTensor.Destroy()

		outputs := make([]ort.Value, 1)
		if err = s.decoder.Run([]ort.Value{decoderIDsTensor, maskTensor, statesTensor}, outputs); err != nil {
			return nil, fmt.Errorf("inference: %w", err)
		}
		defer outputs[0].Destroy()

		logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
		if !ok {
			return nil, errors.New("decoder output is not a float32 tensor")
		}

		// [batch, cur_len, vocab_size]
		shape := logitsTensor.GetShape()
		if len(shape) != 3 || shape[0] != batch || shape[1] != curLen {
			return nil, fmt.Errorf("unexpected decoder output shape %v", shape)
		}

		vocab := shape[2]
		data := logitsTensor.GetData()

		rows := make([][]float32, batch)
		for i := range batch {
			last := (i*curLen + curLen - 1) * vocab
			rows[i] = make([]float32, vocab)
			copy(rows[i], data[last:last+vocab])
		}

		return rows, nil
	}
}

// Close releases the ONNX sessions and the runtime environment.
func (s *BARTSummarizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if s.encoder != nil {
		if err := s.encoder.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy encoder session: %w", err))
		}
	}

	if s.decoder != nil {
		if err := s.decoder.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy decoder session: %w", err))
		}
	}

	if err := ort.DestroyEnvironment(); err != nil {
		errs = append(errs, fmt.Errorf("destroy ONNX environment: %w", err))
	}

	return errors.Join(errs...)
}

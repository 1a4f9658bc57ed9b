package summarizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
)

// stepFunc returns next-token logits for the last position of every sequence.
type stepFunc func(ctx context.Context, seqs [][]int64) ([][]float32, error)

type beamConfig struct {
	Params

	decoderStartID int64
	bosID          int64
	eosID          int64

	forcedBOS         bool
	forcedEOS         bool
	noRepeatNgramSize int
}

type beam struct {
	tokens []int64
	score  float64
}

type beamCandidate struct {
	beam  int
	token int64
	score float64
}

type hypothesis struct {
	tokens []int64
	score  float64
}

type hypotheses struct {
	items         []hypothesis
	numBeams      int
	lengthPenalty float64
}

var negInf = math.Inf(-1)

func (h *hypotheses) lengthNormalized(sumLogprobs float64, length int) float64 {
	return sumLogprobs / math.Pow(float64(length), h.lengthPenalty)
}

func (h *hypotheses) add(tokens []int64, sumLogprobs float64, length int) {
	score := h.lengthNormalized(sumLogprobs, length)

	if len(h.items) >= h.numBeams && score <= h.worst() {
		return
	}

	h.items = append(h.items, hypothesis{tokens: tokens, score: score})
	if len(h.items) > h.numBeams {
		worstIdx := 0
		for i, item := range h.items {
			if item.score < h.items[worstIdx].score {
				worstIdx = i
			}
		}
		h.items = slices.Delete(h.items, worstIdx, worstIdx+1)
	}
}

func (h *hypotheses) worst() float64 {
	worst := math.Inf(1)
	for _, item := range h.items {
		worst = min(worst, item.score)
	}
	return worst
}

func (h *hypotheses) done(earlyStopping bool, bestRunning float64, curLen int) bool {
	if len(h.items) < h.numBeams {
		return false
	}

	if earlyStopping {
		return true
	}

	return h.worst() >= h.lengthNormalized(bestRunning, curLen)
}

func (h *hypotheses) best() (hypothesis, bool) {
	if len(h.items) == 0 {
		return hypothesis{}, false
	}

	best := h.items[0]
	for _, item := range h.items[1:] {
		if item.score > best.score {
			best = item
		}
	}
	return best, true
}

// beamSearch decodes a token sequence starting from the decoder start token.
// The returned sequence includes the start token and, when generation finished
// normally, the trailing EOS token.
func beamSearch(ctx context.Context, step stepFunc, cfg beamConfig) ([]int64, error) {
	numBeams := max(cfg.NumBeams, 1)
	if cfg.MaxLength < 2 {
		return nil, fmt.Errorf("max length %d is too small", cfg.MaxLength)
	}

	hyps := &hypotheses{numBeams: numBeams, lengthPenalty: cfg.LengthPenalty}
	beams := []beam{{tokens: []int64{cfg.decoderStartID}}}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		curLen := len(beams[0].tokens)

		seqs := make([][]int64, len(beams))
		for i, b := range beams {
			seqs[i] = b.tokens
		}

		logits, err := step(ctx, seqs)
		if err != nil {
			return nil, fmt.Errorf("decode step %d: %w", curLen, err)
		}
		if len(logits) != len(beams) {
			return nil, fmt.Errorf("decode step %d: got %d logit rows for %d beams", curLen, len(logits), len(beams))
		}

		var candidates []beamCandidate
		for i, b := range beams {
			logprobs := logSoftmax(logits[i])
			cfg.processLogprobs(logprobs, b.tokens)

			for _, token := range topK(logprobs, 2*numBeams) {
				lp := logprobs[token]
				if math.IsInf(lp, -1) {
					continue
				}
				candidates = append(candidates, beamCandidate{
					beam:  i,
					token: int64(token),
					score: b.score + lp,
				})
			}
		}

		slices.SortStableFunc(candidates, func(a, b beamCandidate) int {
			switch {
			case a.score > b.score:
				return -1
			case a.score < b.score:
				return 1
			default:
				return 0
			}
		})
		if len(candidates) > 2*numBeams {
			candidates = candidates[:2*numBeams]
		}

		var next []beam
		for rank, c := range candidates {
			parent := beams[c.beam].tokens

			if c.token == cfg.eosID {
				if rank >= numBeams {
					continue
				}
				hyps.add(appendToken(parent, c.token), c.score, curLen)
				continue
			}

			next = append(next, beam{tokens: appendToken(parent, c.token), score: c.score})
			if len(next) == numBeams {
				break
			}
		}

		if len(next) == 0 {
			break
		}

		bestRunning := next[0].score
		if hyps.done(cfg.EarlyStopping, bestRunning, curLen+1) {
			break
		}

		if curLen+1 >= cfg.MaxLength {
			for _, b := range next {
				hyps.add(b.tokens, b.score, len(b.tokens)-1)
			}
			break
		}

		beams = next
	}

	best, ok := hyps.best()
	if !ok {
		return nil, errors.New("beam search finished without hypotheses")
	}

	return best.tokens, nil
}

// processLogprobs applies the generation constraints in place.
func (cfg beamConfig) processLogprobs(logprobs []float64, tokens []int64) {
	curLen := len(tokens)

	if cfg.noRepeatNgramSize > 0 {
		for _, banned := range bannedNgramTokens(tokens, cfg.noRepeatNgramSize) {
			if banned >= 0 && int(banned) < len(logprobs) {
				logprobs[banned] = negInf
			}
		}
	}

	if curLen < cfg.MinLength && int(cfg.eosID) < len(logprobs) {
		logprobs[cfg.eosID] = negInf
	}

	if cfg.forcedBOS && curLen == 1 {
		forceToken(logprobs, cfg.bosID)
	}

	if cfg.forcedEOS && curLen == cfg.MaxLength-1 {
		forceToken(logprobs, cfg.eosID)
	}
}

func forceToken(logprobs []float64, token int64) {
	for i := range logprobs {
		logprobs[i] = negInf
	}
	if int(token) < len(logprobs) {
		logprobs[token] = 0
	}
}

// bannedNgramTokens returns the tokens that would complete an n-gram already
// present in tokens.
func bannedNgramTokens(tokens []int64, n int) []int64 {
	if n <= 0 || len(tokens)+1 < n {
		return nil
	}

	prefix := tokens[len(tokens)-(n-1):]

	var banned []int64
	for start := 0; start+n <= len(tokens); start++ {
		if slices.Equal(tokens[start:start+n-1], prefix) {
			banned = append(banned, tokens[start+n-1])
		}
	}

	return banned
}

func logSoftmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}

	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = max(maxLogit, float64(l))
	}

	var sum float64
	for _, l := range logits {
		sum += math.Exp(float64(l) - maxLogit)
	}
	logSum := math.Log(sum) + maxLogit

	for i, l := range logits {
		out[i] = float64(l) - logSum
	}

	return out
}

// topK returns the indices of the k largest values, largest first.
func topK(values []float64, k int) []int {
	k = min(k, len(values))
	if k <= 0 {
		return nil
	}

	top := make([]int, 0, k)
	for i, v := range values {
		if len(top) == k && v <= values[top[k-1]] {
			continue
		}

		pos := len(top)
		for pos > 0 && values[top[pos-1]] < v {
			pos--
		}

		if len(top) < k {
			top = append(top, 0)
		}
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = i
	}

	return top
}

func appendToken(tokens []int64, token int64) []int64 {
	out := make([]int64, len(tokens), len(tokens)+1)
	copy(out, tokens)
	return append(out, token)
}

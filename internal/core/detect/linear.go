package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

var _ Scorer = (*LinearScorer)(nil)

// LinearScorer 本地线性模型，输出 = Weights·input + Bias
type LinearScorer struct {
	Weights [][]float32 `json:"weights"`
	Bias    []float32   `json:"bias"`
}

// LoadLinearScorer 读取 json 权重文件，inputLen 与 outputLen 用于校验维度
func LoadLinearScorer(path string, inputLen, outputLen int) (*LinearScorer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s LinearScorer
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if len(s.Weights) != outputLen || len(s.Bias) != outputLen {
		return nil, fmt.Errorf("model %s has %d outputs, want %d", path, len(s.Weights), outputLen)
	}
	for i, row := range s.Weights {
		if len(row) != inputLen {
			return nil, fmt.Errorf("model %s row %d has %d inputs, want %d", path, i, len(row), inputLen)
		}
	}
	return &s, nil
}

func (s *LinearScorer) Score(ctx context.Context, input []float32) ([]float32, error) {
	out := make([]float32, len(s.Weights))
	for i, row := range s.Weights {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) != len(input) {
			return nil, fmt.Errorf("input length %d, want %d", len(input), len(row))
		}
		var v float32
		for j, w := range row {
			v += w * input[j]
		}
		out[i] = v + s.Bias[i]
	}
	return out, nil
}

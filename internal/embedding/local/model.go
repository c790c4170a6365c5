package local

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

const (
	biasWeight  = 0.01
	ngramWeight = 0.25
)

// weightsFile is the optional on-disk model description.
type weightsFile struct {
	NativeDim    int                `yaml:"native_dim"`
	Ngram        []int              `yaml:"ngram"`
	TokenWeights map[string]float32 `yaml:"token_weights"`
}

// model is a signed feature-hashing encoder: word unigrams and character
// n-grams of each word are hashed into dim buckets. Bucket 0 holds a bias
// feature so that texts without tokens still get a non-zero vector.
type model struct {
	dim      int
	ngramMin int
	ngramMax int
	weights  map[string]float32
}

func loadModel(cfg Config) (*model, error) {
	m := &model{dim: cfg.NativeDim, ngramMin: cfg.NgramMin, ngramMax: cfg.NgramMax}

	if cfg.WeightsFile != "" {
		data, err := os.ReadFile(cfg.WeightsFile)
		if err != nil {
			return nil, fmt.Errorf("read weights file: %w", err)
		}
		var wf weightsFile
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse weights file %s: %w", cfg.WeightsFile, err)
		}
		if wf.NativeDim > 0 {
			m.dim = wf.NativeDim
		}
		switch len(wf.Ngram) {
		case 0:
		case 2:
			m.ngramMin, m.ngramMax = wf.Ngram[0], wf.Ngram[1]
		default:
			return nil, fmt.Errorf("weights file %s: ngram must be [min, max]", cfg.WeightsFile)
		}
		m.weights = wf.TokenWeights
	}

	if m.dim < 2 {
		return nil, fmt.Errorf("native dimension must be at least 2, got %d", m.dim)
	}
	if m.ngramMin < 1 || m.ngramMax < m.ngramMin {
		return nil, fmt.Errorf("invalid ngram range [%d, %d]", m.ngramMin, m.ngramMax)
	}
	return m, nil
}

func (m *model) embed(text string) []float32 {
	vec := make([]float32, m.dim)
	vec[0] = biasWeight

	for _, tok := range tokenize(text) {
		w := float32(1)
		if tw, ok := m.weights[tok]; ok {
			w = tw
		}
		if w == 0 {
			continue
		}
		m.add(vec, "w:"+tok, w)

		runes := []rune("<" + tok + ">")
		for n := m.ngramMin; n <= m.ngramMax; n++ {
			for i := 0; i+n <= len(runes); i++ {
				m.add(vec, "c:"+string(runes[i:i+n]), w*ngramWeight)
			}
		}
	}
	return vec
}

// add hashes a feature into buckets 1..dim-1 with a hash-derived sign.
func (m *model) add(vec []float32, feature string, w float32) {
	h := xxhash.Sum64String(feature)
	idx := 1 + int(h%uint64(m.dim-1))
	if h>>63 == 1 {
		w = -w
	}
	vec[idx] += w
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

package local

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

func defaultConfig() Config {
	return Config{NativeDim: 64, NgramMin: 3, NgramMax: 4}
}

func embedOne(t *testing.T, b *Backend, text string) vector.Dense {
	t.Helper()
	out, err := b.Embed(context.Background(), []string{text})
	if err != nil {
		t.Fatalf("Embed(%q): %v", text, err)
	}
	v, err := vector.Normalize(out[0])
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return v
}

func TestEmbed_NativeWidthAndDeterminism(t *testing.T) {
	b := New(defaultConfig(), zap.NewNop())

	out, err := b.Embed(context.Background(), []string{"warm winter gloves", "warm winter gloves"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || len(out[0]) != 64 {
		t.Fatalf("unexpected shape: %d x %d", len(out), len(out[0]))
	}
	if !reflect.DeepEqual(out[0], out[1]) {
		t.Error("same text produced different vectors")
	}
}

func TestEmbed_SimilarTextsAreCloser(t *testing.T) {
	b := New(Config{NativeDim: 1024, NgramMin: 3, NgramMax: 5}, zap.NewNop())

	gloves := embedOne(t, b, "warm winter gloves")
	mittens := embedOne(t, b, "winter gloves for kids")
	sandals := embedOne(t, b, "summer beach sandals")

	if gloves.Dot(mittens) <= gloves.Dot(sandals) {
		t.Errorf("sim(gloves, mittens)=%f should exceed sim(gloves, sandals)=%f",
			gloves.Dot(mittens), gloves.Dot(sandals))
	}
}

func TestEmbed_EmptyTextIsNonZero(t *testing.T) {
	b := New(defaultConfig(), zap.NewNop())
	out, err := b.Embed(context.Background(), []string{"", "!!!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if _, err := vector.Normalize(v); err != nil {
			t.Errorf("vector %d cannot be normalized: %v", i, err)
		}
	}
}

func TestEmbed_CaseInsensitive(t *testing.T) {
	b := New(defaultConfig(), zap.NewNop())
	out, _ := b.Embed(context.Background(), []string{"Winter Gloves", "winter gloves"})
	if !reflect.DeepEqual(out[0], out[1]) {
		t.Error("case should not change the embedding")
	}
}

func TestEmbed_CanceledContext(t *testing.T) {
	b := New(defaultConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Embed(ctx, []string{"a"}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestLoad_ExactlyOnceUnderConcurrency(t *testing.T) {
	b := New(defaultConfig(), zap.NewNop())

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Embed(context.Background(), []string{"x"}); err != nil {
				t.Errorf("Embed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := b.loads.Load(); n != 1 {
		t.Errorf("model loaded %d times, want 1", n)
	}
}

func TestLoad_WeightsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	content := "native_dim: 128\nngram: [2, 3]\ntoken_weights:\n  the: 0\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	b := New(Config{NativeDim: 64, NgramMin: 3, NgramMax: 4, WeightsFile: path}, zap.NewNop())
	out, err := b.Embed(context.Background(), []string{"the gloves", "gloves"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out[0]) != 128 {
		t.Errorf("native width = %d, want 128 from weights file", len(out[0]))
	}
	if !reflect.DeepEqual(out[0], out[1]) {
		t.Error("zero-weight token should not contribute")
	}
}

func TestLoad_FailureIsSticky(t *testing.T) {
	b := New(Config{NativeDim: 64, NgramMin: 3, NgramMax: 4, WeightsFile: "/nonexistent/weights.yaml"}, zap.NewNop())

	if err := b.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if _, err := b.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected load error on later call")
	}
	if n := b.loads.Load(); n != 1 {
		t.Errorf("load attempted %d times, want 1", n)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"dim too small", Config{NativeDim: 1, NgramMin: 3, NgramMax: 4}},
		{"ngram min zero", Config{NativeDim: 64, NgramMin: 0, NgramMax: 4}},
		{"ngram reversed", Config{NativeDim: 64, NgramMin: 5, NgramMax: 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadModel(tc.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Hello, World! 42 čaj")
	want := []string{"hello", "world", "42", "čaj"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize = %v, want %v", got, want)
	}
}

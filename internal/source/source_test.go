package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.json",
		`[{"text": "red shoes", "price": 10, "rating": 4.5}, {"text": "blue hat", "tags": ["a", "b"]}]`)

	recs, err := Load(path, "text")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "red shoes", recs[0]["text"])
	assert.Equal(t, int64(10), recs[0]["price"])
	assert.Equal(t, 4.5, recs[0]["rating"])
	assert.Equal(t, []any{"a", "b"}, recs[1]["tags"])
}

func TestLoad_JSONNotArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.json", `{"text": "single"}`)

	_, err := Load(path, "text")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoad_JSONItemNotObject(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.json", `[{"text": "ok"}, null]`)

	_, err := Load(path, "text")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoad_JSONLines(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.jsonl", "{\"text\": \"one\"}\n\n{\"text\": \"two\", \"n\": 2}\n")

	recs, err := Load(path, "text")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "two", recs[1]["text"])
	assert.Equal(t, int64(2), recs[1]["n"])
}

func TestLoad_JSONLinesBadLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.ndjson", "{\"text\": \"one\"}\n[1,2]\n")

	_, err := Load(path, "text")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.csv",
		"\ufefftitle,text,category\nShoes,red running shoes,footwear\nEmpty,,misc\nHat,\"wool hat, warm\",apparel\n")

	recs, err := Load(path, "text")
	require.NoError(t, err)
	require.Len(t, recs, 2, "row with empty text is dropped")
	assert.Equal(t, "Shoes", recs[0]["title"])
	assert.Equal(t, "footwear", recs[0]["category"])
	assert.Equal(t, "wool hat, warm", recs[1]["text"])
}

func TestLoad_CSVMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.csv", "title,body\nA,B\n")

	_, err := Load(path, "text")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "title, body")
}

func TestLoad_CSVEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.csv", "")

	_, err := Load(path, "text")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type parquetDoc struct {
	Text   string   `parquet:"text,optional"`
	Title  string   `parquet:"title"`
	Year   int64    `parquet:"year"`
	Score  float64  `parquet:"score"`
	Tags   []string `parquet:"tags,list"`
	Active bool     `parquet:"active"`
}

func TestLoad_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.parquet")
	rows := []parquetDoc{
		{Text: "red shoes", Title: "Shoes", Year: 2024, Score: 0.5, Tags: []string{"a", "b"}, Active: true},
		{Text: "", Title: "Blank"},
		{Text: "blue hat", Title: "Hat", Year: 2023},
	}
	require.NoError(t, parquet.WriteFile(path, rows))

	recs, err := Load(path, "text")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "red shoes", recs[0]["text"])
	assert.Equal(t, "Shoes", recs[0]["title"])
	assert.Equal(t, int64(2024), recs[0]["year"])
	assert.Equal(t, 0.5, recs[0]["score"])
	assert.Equal(t, true, recs[0]["active"])
	assert.Equal(t, []any{"a", "b"}, recs[0]["tags"])
	assert.Equal(t, "blue hat", recs[1]["text"])
}

func TestLoad_ParquetMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.parquet")
	require.NoError(t, parquet.WriteFile(path, []parquetDoc{{Text: "x"}}))

	_, err := Load(path, "body")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLoad_Unsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docs.txt", "hello")

	_, err := Load(path, "text")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), ".csv")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "text")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrValidation)
}

func TestLoad_Glob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b/two.json", `[{"text": "two"}]`)
	writeFile(t, dir, "a/one.csv", "text\none\n")
	writeFile(t, dir, "a/deep/three.jsonl", `{"text": "three"}`)

	recs, err := Load(filepath.Join(dir, "**", "*.{json,jsonl,csv}"), "text")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "three", recs[0]["text"])
	assert.Equal(t, "one", recs[1]["text"])
	assert.Equal(t, "two", recs[2]["text"])
}

func TestExpand_NoMatch(t *testing.T) {
	_, err := Expand(filepath.Join(t.TempDir(), "*.json"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

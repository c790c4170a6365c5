package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Entry scores are cosine similarities (1 - distance), highest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Field == "" {
		return nil, fmt.Errorf("vector field is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	scoreField := "__" + q.Field + "_score"
	queryStr := fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, q.Field, scoreField)

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		fields := append(slices.Clone(q.ReturnFields), scoreField)
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, s.wrap(db.OpSearch, err)
	}

	return parseKNNResult(raw, scoreField)
}

// SearchTags returns documents whose TAG field holds any of the query values.
// No relevance is computed: entry scores are zero and order is server-defined.
func (s *Store) SearchTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	if q.IndexName == "" || q.Field == "" {
		return nil, fmt.Errorf("index name and field are required")
	}
	if len(q.Values) == 0 || q.Limit <= 0 {
		return &db.SearchResult{}, nil
	}
	if s.flavor == FlavorValkey {
		return s.scanTags(ctx, q)
	}

	escaped := make([]string, len(q.Values))
	for i, v := range q.Values {
		escaped[i] = tagEscaper.Replace(v)
	}
	queryStr := fmt.Sprintf("@%s:{%s}", q.Field, strings.Join(escaped, " | "))

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args, "LIMIT", strconv.Itoa(max(q.Offset, 0)), strconv.Itoa(q.Limit), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, s.wrap(db.OpSearch, err)
	}

	return parseListResult(raw)
}

// SearchCount returns the number of indexed documents.
// Valkey cannot run a bare "*" query, so it counts keys under keyPrefix instead.
func (s *Store) SearchCount(ctx context.Context, index, keyPrefix string) (int, error) {
	if s.flavor == FlavorValkey {
		return s.scanCount(ctx, keyPrefix)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, s.wrap(db.OpSearch, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// scanTags answers a tag query with SCAN + pipelined HGETALL. The first
// Offset matches are skipped, so paging costs a rescan per page.
func (s *Store) scanTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	if q.KeyPrefix == "" {
		return nil, fmt.Errorf("key prefix is required for scan search")
	}
	sep := q.Separator
	if sep == "" {
		sep = ","
	}
	want := make(map[string]struct{}, len(q.Values))
	for _, v := range q.Values {
		want[v] = struct{}{}
	}

	res := &db.SearchResult{}
	skip := q.Offset
	var cursor uint64
	for {
		keys, next, err := s.ScanPage(ctx, q.KeyPrefix+"*", cursor, defaultScanCount)
		if err != nil {
			return nil, err
		}
		hashes, err := s.HGetAllMulti(ctx, keys)
		if err != nil {
			return nil, err
		}
		for i, h := range hashes {
			if !hasAnyTag(h[q.Field], sep, want) {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			res.Entries = append(res.Entries, db.SearchEntry{Key: keys[i], Fields: pick(h, q.ReturnFields)})
			if len(res.Entries) >= q.Limit {
				res.Total = len(res.Entries)
				return res, nil
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	res.Total = len(res.Entries)
	return res, nil
}

func (s *Store) scanCount(ctx context.Context, keyPrefix string) (int, error) {
	if keyPrefix == "" {
		return 0, fmt.Errorf("key prefix is required for scan count")
	}
	keys, err := s.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan for count: %w", err)
	}
	return len(keys), nil
}

func hasAnyTag(value, sep string, want map[string]struct{}) bool {
	if value == "" {
		return false
	}
	for _, tag := range strings.Split(value, sep) {
		if _, ok := want[strings.TrimSpace(tag)]; ok {
			return true
		}
	}
	return false
}

func pick(fields map[string]string, names []string) map[string]string {
	if len(names) == 0 {
		return fields
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := fields[n]; ok {
			out[n] = v
		}
	}
	return out
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage, scoreField string) (*db.SearchResult, error) {
	res, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}

	for i := range res.Entries {
		e := &res.Entries[i]
		if scoreStr, ok := e.Fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				e.Score = 1.0 - d // cosine distance -> similarity
			}
			delete(e.Fields, scoreField)
		}
	}
	// valkey-search ignores SORTBY, so order here for both flavors.
	slices.SortStableFunc(res.Entries, func(a, b db.SearchEntry) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	return res, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

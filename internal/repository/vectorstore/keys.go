package vectorstore

import "strings"

// Key layout, relative to the configured prefix:
//
//	{prefix}{collection}:meta        schema hash
//	{prefix}{collection}:idx         FT index over point hashes
//	{prefix}{collection}:pt:{id}     one hash per record
//	{prefix}{collection}:df:{term}   document frequency counter
type keys struct {
	prefix string
}

func (k keys) base(col string) string { return k.prefix + col + ":" }

func (k keys) meta(col string) string { return k.base(col) + "meta" }

func (k keys) index(col string) string { return k.base(col) + "idx" }

func (k keys) pointPrefix(col string) string { return k.base(col) + "pt:" }

func (k keys) point(col, id string) string { return k.pointPrefix(col) + id }

func (k keys) df(col, term string) string { return k.base(col) + "df:" + term }

func (k keys) pointID(col, key string) string {
	return strings.TrimPrefix(key, k.pointPrefix(col))
}

const termsSuffix = "_terms"

// termsField is the TAG field listing the sparse indices of a record.
func termsField(lexicalField string) string { return lexicalField + termsSuffix }

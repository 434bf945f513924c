package bert

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Batch holds tokenized input ready for ONNX inference. All slices are flat
// [Size * SeqLen].
type Batch struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	Size          int64
	SeqLen        int64
}

// Tokenizer performs BERT-style WordPiece tokenization for single texts and
// for (query, document) pairs.
type Tokenizer struct {
	vocab     *vocab
	maxSeqLen int
}

func NewTokenizer(vocabPath string, maxSeqLen int) (*Tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	if maxSeqLen < 8 {
		maxSeqLen = 8
	}
	return &Tokenizer{vocab: v, maxSeqLen: maxSeqLen}, nil
}

// EncodeBatch tokenizes texts as [CLS] text [SEP], padded to the longest
// sequence in the batch (capped at maxSeqLen).
func (t *Tokenizer) EncodeBatch(texts []string) Batch {
	n := len(texts)
	if n == 0 {
		return Batch{}
	}

	type seq struct {
		ids     []int64
		typeIDs []int64
	}
	seqs := make([]seq, n)
	maxLen := 0
	for i, text := range texts {
		tokens := t.subwords(text)
		budget := t.maxSeqLen - 2
		if len(tokens) > budget {
			tokens = tokens[:budget]
		}
		ids := make([]int64, 0, len(tokens)+2)
		ids = append(ids, t.vocab.clsID)
		for _, tok := range tokens {
			ids = append(ids, t.vocab.lookup(tok))
		}
		ids = append(ids, t.vocab.sepID)
		seqs[i] = seq{ids: ids, typeIDs: make([]int64, len(ids))}
		if len(ids) > maxLen {
			maxLen = len(ids)
		}
	}
	return packBatch(seqs, maxLen, func(s seq) ([]int64, []int64) { return s.ids, s.typeIDs })
}

// EncodePairBatch tokenizes aligned (query, document) pairs as
// [CLS] query [SEP] document [SEP] with segment IDs 0/1. Over-long pairs are
// truncated longest-first so short queries keep their full text.
func (t *Tokenizer) EncodePairBatch(queries, docs []string) Batch {
	n := len(queries)
	if n == 0 || len(docs) != n {
		return Batch{}
	}

	type seq struct {
		ids     []int64
		typeIDs []int64
	}
	seqs := make([]seq, n)
	maxLen := 0
	for i := 0; i < n; i++ {
		qTokens := t.subwords(queries[i])
		dTokens := t.subwords(docs[i])
		budget := t.maxSeqLen - 3
		for len(qTokens)+len(dTokens) > budget {
			if len(qTokens) >= len(dTokens) {
				qTokens = qTokens[:len(qTokens)-1]
			} else {
				dTokens = dTokens[:len(dTokens)-1]
			}
		}

		ids := make([]int64, 0, len(qTokens)+len(dTokens)+3)
		typeIDs := make([]int64, 0, cap(ids))
		ids = append(ids, t.vocab.clsID)
		typeIDs = append(typeIDs, 0)
		for _, tok := range qTokens {
			ids = append(ids, t.vocab.lookup(tok))
			typeIDs = append(typeIDs, 0)
		}
		ids = append(ids, t.vocab.sepID)
		typeIDs = append(typeIDs, 0)
		for _, tok := range dTokens {
			ids = append(ids, t.vocab.lookup(tok))
			typeIDs = append(typeIDs, 1)
		}
		ids = append(ids, t.vocab.sepID)
		typeIDs = append(typeIDs, 1)

		seqs[i] = seq{ids: ids, typeIDs: typeIDs}
		if len(ids) > maxLen {
			maxLen = len(ids)
		}
	}
	return packBatch(seqs, maxLen, func(s seq) ([]int64, []int64) { return s.ids, s.typeIDs })
}

func packBatch[S any](seqs []S, maxLen int, fields func(S) ([]int64, []int64)) Batch {
	batchSize := int64(len(seqs))
	seqLen := int64(maxLen)
	total := batchSize * seqLen

	b := Batch{
		InputIDs:      make([]int64, total),
		AttentionMask: make([]int64, total),
		TokenTypeIDs:  make([]int64, total),
		Size:          batchSize,
		SeqLen:        seqLen,
	}
	for i, s := range seqs {
		ids, typeIDs := fields(s)
		off := int64(i) * seqLen
		for j, id := range ids {
			b.InputIDs[off+int64(j)] = id
			b.AttentionMask[off+int64(j)] = 1
			b.TokenTypeIDs[off+int64(j)] = typeIDs[j]
		}
	}
	return b
}

// subwords runs basic tokenization followed by WordPiece decomposition.
func (t *Tokenizer) subwords(text string) []string {
	var result []string
	for _, token := range t.basicTokenize(text) {
		if len(token) == 0 {
			continue
		}
		result = append(result, t.wordpieceToken(token)...)
	}
	return result
}

// basicTokenize applies BERT's BasicTokenizer: clean, isolate CJK, lowercase,
// strip accents, split on whitespace and punctuation.
func (t *Tokenizer) basicTokenize(text string) []string {
	text = cleanText(text)
	text = isolateCJK(text)
	text = strings.ToLower(text)
	text = stripAccents(text)

	var tokens []string
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, splitOnPunctuation(word)...)
	}
	return tokens
}

func (t *Tokenizer) wordpieceToken(token string) []string {
	runes := []rune(token)
	if len(runes) > 200 {
		return []string{"[UNK]"}
	}

	var subTokens []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.contains(sub) {
				subTokens = append(subTokens, sub)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{"[UNK]"}
		}
		start = end
	}
	return subTokens
}

func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == 0 || r == 0xFFFD || isControl(r) {
			continue
		}
		if isWhitespace(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isolateCJK adds spaces around CJK ideographs so each becomes its own token.
func isolateCJK(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if isCJK(r) {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitOnPunctuation(word string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range word {
		if isPunctuation(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
		} else {
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// Character classes below match BERT's reference implementation.

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}

package speechapi

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

// The transcription service has shipped at least three success envelopes over
// time: a bare array of word objects, a {"transcript", "words"} object, and a
// numeric-code envelope ({"code": 1, "transcript": ...} for success,
// {"code": 2, "message": ...} for insufficient quota). Normalize tolerates
// all of them rather than privileging one as canonical.

var (
	numberWrapperRe = regexp.MustCompile(`Number\(\s*(-?\d+(?:\.\d+)?)\s*\)`)
	singleQuotedRe  = regexp.MustCompile(`'([^'\\]*)'`)
)

// Normalize converts a raw response body of unknown shape into the canonical
// transcription result. It returns driven.ErrMalformedResponse when neither
// strict parsing nor the repair pass yields a usable document; it never
// returns partially-parsed or guessed data. A server-reported quota condition
// surfaces as *driven.QuotaError.
func Normalize(raw []byte) (*model.TranscriptionResult, error) {
	doc, ok := decodeLoose(raw)
	if !ok {
		doc, ok = decodeLoose(repair(raw))
		if !ok {
			return nil, driven.ErrMalformedResponse
		}
	}

	switch v := doc.(type) {
	case []any:
		words, ok := parseWords(v)
		if !ok {
			return nil, driven.ErrMalformedResponse
		}
		return &model.TranscriptionResult{
			Transcript: synthesizeTranscript(words),
			Words:      words,
		}, nil
	case map[string]any:
		return normalizeObject(v)
	default:
		return nil, driven.ErrMalformedResponse
	}
}

// decodeLoose parses JSON with numbers kept as json.Number so that integer
// and fractional offsets survive without float surprises.
func decodeLoose(raw []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false
	}
	return doc, true
}

// repair is the best-effort pass over a loosely-typed source document:
// numeric wrapper calls are unwrapped, Python-style literals become their
// JSON equivalents, and single-quoted keys/values become double-quoted.
// It is heuristic; mis-parses of unusual-but-valid documents are expected
// and handled by the caller as a normalization failure.
func repair(raw []byte) []byte {
	s := string(raw)
	s = numberWrapperRe.ReplaceAllString(s, "$1")
	s = singleQuotedRe.ReplaceAllString(s, `"$1"`)

	for literal, replacement := range map[string]string{
		"True":  "true",
		"False": "false",
		"None":  "null",
	} {
		s = replaceBareLiteral(s, literal, replacement)
	}

	return []byte(s)
}

// replaceBareLiteral rewrites whole-word occurrences of literal outside of
// double-quoted strings.
func replaceBareLiteral(s, literal, replacement string) string {
	var b strings.Builder
	inString := false

	for i := 0; i < len(s); {
		c := s[i]
		if c == '"' && (i == 0 || s[i-1] != '\\') {
			inString = !inString
		}
		if !inString && !aheadIsWordChar(s, i-1) && strings.HasPrefix(s[i:], literal) && !aheadIsWordChar(s, i+len(literal)) {
			b.WriteString(replacement)
			i += len(literal)
			continue
		}
		b.WriteByte(c)
		i++
	}

	return b.String()
}

func aheadIsWordChar(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func normalizeObject(obj map[string]any) (*model.TranscriptionResult, error) {
	if rawCode, present := obj["code"]; present {
		code, ok := toFloat(rawCode)
		if !ok {
			return nil, driven.ErrMalformedResponse
		}
		switch int(code) {
		case 1:
			// Success envelope: transcript only, words optional.
		case 2:
			return nil, &driven.QuotaError{Message: stringField(obj, "message")}
		default:
			return nil, driven.ErrMalformedResponse
		}
	}

	rawWords, hasWords := obj["words"]
	transcript, hasTranscript := obj["transcript"].(string)
	_, hasCode := obj["code"]
	if !hasWords && !hasTranscript && !hasCode {
		return nil, driven.ErrMalformedResponse
	}

	words := []model.WordSpan{}
	if hasWords {
		list, ok := rawWords.([]any)
		if !ok {
			return nil, driven.ErrMalformedResponse
		}
		words, ok = parseWords(list)
		if !ok {
			return nil, driven.ErrMalformedResponse
		}
	}

	if !hasTranscript && len(words) > 0 {
		transcript = synthesizeTranscript(words)
	}

	return &model.TranscriptionResult{
		Transcript: transcript,
		Words:      words,
	}, nil
}

func parseWords(list []any) ([]model.WordSpan, bool) {
	words := make([]model.WordSpan, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, false
		}

		text, _ := obj["word"].(string)
		words = append(words, model.WordSpan{
			Text:  text,
			Start: offsetField(obj, "start"),
			End:   offsetField(obj, "end"),
		})
	}
	return words, true
}

// offsetField coerces a word timing field to seconds when it is numeric-like
// and returns nil otherwise. An unknown offset stays nil; it is never
// defaulted to zero, which would be indistinguishable from a real
// zero-second offset.
func offsetField(obj map[string]any, key string) *float64 {
	v, present := obj[key]
	if !present {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// synthesizeTranscript joins word tokens when the service returned no
// top-level transcript. Tokens often carry their own leading spaces, so they
// are concatenated without separators and the result is collapsed to single
// spaces.
func synthesizeTranscript(words []model.WordSpan) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Text)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Package lexical scores literal keyword overlap between a resume and a job
// description and lists job keywords the resume lacks.
package lexical

import (
	"math"
	"strings"

	"github.com/WessleyAI/resumatch/engine/textproc"
)

const (
	// DefaultMaxMissing caps the missing-keyword list.
	DefaultMaxMissing = 10
	// DefaultMinKeywordLen is the shortest word reported as missing.
	DefaultMinKeywordLen = 3
)

// Result is the lexical score (0–100) and the missing job keywords in
// job-description reading order.
type Result struct {
	Score   float64
	Missing []string
}

// Scorer computes lexical similarity. The zero value is not usable; use New.
type Scorer struct {
	maxMissing    int
	minKeywordLen int
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithMaxMissing sets the missing-keyword cap.
func WithMaxMissing(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.maxMissing = n
		}
	}
}

// WithMinKeywordLen sets the minimum length of a reported keyword.
func WithMinKeywordLen(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.minKeywordLen = n
		}
	}
}

// New creates a Scorer.
func New(opts ...Option) *Scorer {
	s := &Scorer{maxMissing: DefaultMaxMissing, minKeywordLen: DefaultMinKeywordLen}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score compares resume against job. Either text empty gives a zero score and
// no missing keywords.
func (s *Scorer) Score(resume, job string) Result {
	if resume == "" || job == "" {
		return Result{Score: 0, Missing: []string{}}
	}
	resumeTokens := textproc.Tokenize(resume)
	jobTokens := textproc.Tokenize(job)
	return Result{
		Score:   Similarity(resumeTokens, jobTokens) * 100,
		Missing: s.missing(resumeTokens, job),
	}
}

// Similarity is the cosine similarity of the binary unigram+bigram feature
// vectors of two token sequences. It is 0 when either sequence is empty.
func Similarity(a, b []string) float64 {
	fa, fb := Features(a), Features(b)
	if len(fa) == 0 || len(fb) == 0 {
		return 0
	}
	small, large := fa, fb
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for f := range small {
		if _, ok := large[f]; ok {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(fa))*float64(len(fb)))
}

// Features returns the set of unigrams and space-joined bigrams of tokens.
func Features(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, 2*len(tokens))
	for i, t := range tokens {
		set[t] = struct{}{}
		if i > 0 {
			set[tokens[i-1]+" "+t] = struct{}{}
		}
	}
	return set
}

// missing walks the job's words in order and keeps those whose stem never
// appears in the resume, deduplicated by stem and shown as written.
func (s *Scorer) missing(resumeTokens []string, job string) []string {
	have := make(map[string]struct{}, len(resumeTokens))
	for _, t := range resumeTokens {
		have[t] = struct{}{}
	}

	surface := textproc.SurfaceWords(job)
	out := make([]string, 0, s.maxMissing)
	seen := make(map[string]struct{})
	for _, word := range surface {
		if len(out) == s.maxMissing {
			break
		}
		if len(word) < s.minKeywordLen {
			continue
		}
		lower := strings.ToLower(word)
		if textproc.IsStopWord(lower) {
			continue
		}
		stem := textproc.Stem(lower)
		if _, ok := have[stem]; ok {
			continue
		}
		if _, ok := seen[stem]; ok {
			continue
		}
		seen[stem] = struct{}{}
		out = append(out, word)
	}
	return out
}

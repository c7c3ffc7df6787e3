package textproc

// englishStopWords is the standard English stop-word list (NLTK corpus),
// restricted to forms that survive cleaning (no apostrophes).
var englishStopWords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
	"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she",
	"her", "hers", "herself", "it", "its", "itself", "they", "them", "their",
	"theirs", "themselves", "what", "which", "who", "whom", "this", "that",
	"these", "those", "am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of",
	"at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
	"very", "s", "t", "can", "will", "just", "don", "should", "now", "d",
	"ll", "m", "o", "re", "ve", "y", "ain", "aren", "couldn", "didn",
	"doesn", "hadn", "hasn", "haven", "isn", "ma", "mightn", "mustn",
	"needn", "shan", "shouldn", "wasn", "weren", "won", "wouldn",
}

// domainNoiseWords is generic resume / job-posting boilerplate. These words
// appear in almost every posting and say nothing about skill fit.
var domainNoiseWords = []string{
	"job", "title", "description", "requirements", "summary", "experience",
	"looking", "seeking", "ideal", "candidate", "must", "have", "skills",
	"ensure", "ensuring", "high", "ability", "work", "responsibilities",
	"duties", "role", "position", "year", "years", "plus", "strong",
	"knowledge", "degree", "preferred", "qualification", "qualifications",
	"opportunity", "environment", "team", "player", "members",
	"communication", "collaborate", "support", "help", "client", "clients",
	"customer", "business", "company", "join", "make", "doing", "build",
	"building", "create", "creating", "develop", "developing", "maintain",
	"maintaining", "manage", "managing", "perform", "performing", "provide",
	"providing", "deliver", "delivering", "using", "used", "working", "works",
	"include", "including", "require", "requires", "participate", "skilled",
	"proficient", "excellent", "good",
}

var stopWords = func() map[string]struct{} {
	m := make(map[string]struct{}, len(englishStopWords)+len(domainNoiseWords))
	for _, w := range englishStopWords {
		m[w] = struct{}{}
	}
	for _, w := range domainNoiseWords {
		m[w] = struct{}{}
	}
	return m
}()

// IsStopWord reports whether the lower-cased word is an English stop-word or
// a domain noise word.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

package sources

// Book source types.
const (
	TypeText  = 0
	TypeAudio = 1
)

// DefaultRespondTime is the response time assumed for a new source, in
// milliseconds.
const DefaultRespondTime int64 = 180000

// BookSource describes how to search, list and read books on one website.
// The source URL is its identity.
type BookSource struct {
	BookSourceURL     string        `json:"bookSourceUrl"`
	BookSourceName    string        `json:"bookSourceName"`
	BookSourceGroup   string        `json:"bookSourceGroup,omitempty"`
	BookSourceType    int           `json:"bookSourceType"` // TypeText or TypeAudio
	BookURLPattern    string        `json:"bookUrlPattern,omitempty"`
	CustomOrder       int           `json:"customOrder"`
	Enabled           bool          `json:"enabled"`
	EnabledExplore    bool          `json:"enabledExplore"`
	ConcurrentRate    string        `json:"concurrentRate,omitempty"`
	Header            string        `json:"header,omitempty"`
	LoginURL          string        `json:"loginUrl,omitempty"`
	LoginUI           string        `json:"loginUi,omitempty"`
	LoginCheckJs      string        `json:"loginCheckJs,omitempty"`
	BookSourceComment string        `json:"bookSourceComment,omitempty"`
	LastUpdateTime    int64         `json:"lastUpdateTime"`
	RespondTime       int64         `json:"respondTime"`
	Weight            int           `json:"weight"`
	ExploreURL        string        `json:"exploreUrl,omitempty"`
	RuleExplore       *ExploreRule  `json:"ruleExplore,omitempty"`
	SearchURL         string        `json:"searchUrl,omitempty"`
	RuleSearch        *SearchRule   `json:"ruleSearch,omitempty"`
	RuleBookInfo      *BookInfoRule `json:"ruleBookInfo,omitempty"`
	RuleToc           *TocRule      `json:"ruleToc,omitempty"`
	RuleContent       *ContentRule  `json:"ruleContent,omitempty"`
}

// newBookSource returns a source with the defaults a missing field implies.
func newBookSource() *BookSource {
	return &BookSource{
		Enabled:        true,
		EnabledExplore: true,
		RespondTime:    DefaultRespondTime,
	}
}

// SearchRule extracts books from a search result page.
type SearchRule struct {
	CheckKeyWord string `json:"checkKeyWord,omitempty"`
	BookList     string `json:"bookList,omitempty"`
	Name         string `json:"name,omitempty"`
	Author       string `json:"author,omitempty"`
	Intro        string `json:"intro,omitempty"`
	Kind         string `json:"kind,omitempty"`
	LastChapter  string `json:"lastChapter,omitempty"`
	UpdateTime   string `json:"updateTime,omitempty"`
	BookURL      string `json:"bookUrl,omitempty"`
	CoverURL     string `json:"coverUrl,omitempty"`
	WordCount    string `json:"wordCount,omitempty"`
}

// ExploreRule extracts books from a discovery (browse) page.
type ExploreRule struct {
	BookList    string `json:"bookList,omitempty"`
	Name        string `json:"name,omitempty"`
	Author      string `json:"author,omitempty"`
	Intro       string `json:"intro,omitempty"`
	Kind        string `json:"kind,omitempty"`
	LastChapter string `json:"lastChapter,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
	BookURL     string `json:"bookUrl,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
	WordCount   string `json:"wordCount,omitempty"`
}

// BookInfoRule extracts metadata from a book's detail page.
type BookInfoRule struct {
	Init         string `json:"init,omitempty"`
	Name         string `json:"name,omitempty"`
	Author       string `json:"author,omitempty"`
	Intro        string `json:"intro,omitempty"`
	Kind         string `json:"kind,omitempty"`
	LastChapter  string `json:"lastChapter,omitempty"`
	UpdateTime   string `json:"updateTime,omitempty"`
	CoverURL     string `json:"coverUrl,omitempty"`
	TocURL       string `json:"tocUrl,omitempty"`
	WordCount    string `json:"wordCount,omitempty"`
	CanReName    string `json:"canReName,omitempty"`
	DownloadURLs string `json:"downloadUrls,omitempty"`
}

// TocRule extracts the table of contents.
type TocRule struct {
	ChapterList string `json:"chapterList,omitempty"`
	ChapterName string `json:"chapterName,omitempty"`
	ChapterURL  string `json:"chapterUrl,omitempty"`
	IsVolume    string `json:"isVolume,omitempty"`
	IsVip       string `json:"isVip,omitempty"`
	IsPay       string `json:"isPay,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
	NextTocURL  string `json:"nextTocUrl,omitempty"`
}

// ContentRule extracts chapter text.
type ContentRule struct {
	Content        string `json:"content,omitempty"`
	Title          string `json:"title,omitempty"`
	NextContentURL string `json:"nextContentUrl,omitempty"`
	WebJs          string `json:"webJs,omitempty"`
	SourceRegex    string `json:"sourceRegex,omitempty"`
	ReplaceRegex   string `json:"replaceRegex,omitempty"`
	ImageStyle     string `json:"imageStyle,omitempty"`
}

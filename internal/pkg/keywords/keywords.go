// Package keywords 素材搜索关键词的兜底提取。
// LLM 关键词派生失败时走这里：对主题做分词，保留有信息量的词，
// 再补充通用素材搜索词。提取本身永不失败，保证流水线不被该步骤阻塞。
package keywords

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-ego/gse"
)

const maxKeywords = 15

// 通用素材搜索词，排在主题词之后
var stockSuffixes = []string{"4k footage", "cinematic", "stock video", "high quality"}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Extractor 关键词提取器
type Extractor struct {
	segmenter *gse.Segmenter // gse 分词器，初始化失败时为 nil（降级到正则分词）
}

// NewExtractor 创建关键词提取器
func NewExtractor() *Extractor {
	segmenter, err := gse.New()
	if err != nil {
		return &Extractor{}
	}
	return &Extractor{segmenter: &segmenter}
}

// Extract 从主题提取兜底关键词，最多返回 15 个
func (e *Extractor) Extract(topic string) []string {
	words := e.tokenize(strings.ToLower(topic))

	keywords := make([]string, 0, maxKeywords)
	seen := make(map[string]bool)
	for _, word := range words {
		word = strings.TrimSpace(word)
		if utf8.RuneCountInString(word) < 4 || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) >= 5 {
			break
		}
	}

	keywords = append(keywords, stockSuffixes...)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

func (e *Extractor) tokenize(text string) []string {
	if e.segmenter != nil {
		return e.segmenter.Cut(text, false)
	}
	return wordPattern.FindAllString(text, -1)
}

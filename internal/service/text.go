package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// sanitizeText 去除备注等自由文本中的标记，只保留纯文本
func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// 先解码实体再清洗，避免 &lt;script&gt; 在清洗后被还原成标签
	return strings.TrimSpace(plainTextPolicy.Sanitize(html.UnescapeString(trimmed)))
}

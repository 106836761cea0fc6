package services

import (
	"html"
	"regexp"
	"strings"
)

var (
	reScript    = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	reTags      = regexp.MustCompile(`(?s)<[^>]+>`)
	reTOC       = regexp.MustCompile(`(?im)^(.*mục lục.*|.*table of contents.*)$`)
	rePageNum   = regexp.MustCompile(`(?im)^.*(trang|page)[^\d]*\d+.*$`)
	reSpecial   = regexp.MustCompile(`(?m)^[\s\W\d]*$`)
	reMultiLine = regexp.MustCompile(`\n{2,}`)
	reSpaces    = regexp.MustCompile(`[ \t]{2,}`)
)

// StripHTML chuyển HTML về text thuần: bỏ script/style, bỏ tag, unescape entity
func StripHTML(raw string) string {
	cleaned := reScript.ReplaceAllString(raw, "\n")
	cleaned = reTags.ReplaceAllString(cleaned, "\n")
	cleaned = html.UnescapeString(cleaned)
	return cleaned
}

// PreCleanText xử lý thô: loại mục lục, số trang, dòng rác, khoảng trắng
func PreCleanText(text string) string {
	cleaned := text

	// Xoá các dòng chứa "Mục lục" hoặc "Table of Contents"
	cleaned = reTOC.ReplaceAllString(cleaned, "")

	// Xoá các dòng chứa "Trang X" hoặc "Page X"
	cleaned = rePageNum.ReplaceAllString(cleaned, "")

	// Xoá dòng chỉ có số, ký tự đặc biệt hoặc khoảng trắng
	cleaned = reSpecial.ReplaceAllString(cleaned, "")

	// Gom khoảng trắng và dòng trống thừa
	cleaned = reSpaces.ReplaceAllString(cleaned, " ")
	cleaned = reMultiLine.ReplaceAllString(cleaned, "\n")

	return strings.TrimSpace(cleaned)
}

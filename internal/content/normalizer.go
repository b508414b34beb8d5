// Package content は取得したHTMLソースから可視テキスト断片を抽出する。
package content

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements は内容を可視テキストとして扱わない要素。
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Fragments は生のマークアップから可視テキスト断片の順序付き列を抽出する。
// タグ・コメント・空白のみのテキストノードは取り除き、各断片は前後の空白を
// 除去した非空文字列になる。壊れたマークアップでもエラーにせず、
// 回収できた断片だけを文書順で返す。入力が空または解析不能な場合は空の列。
func Fragments(src string) []string {
	if src == "" {
		return nil
	}

	z := html.NewTokenizer(strings.NewReader(src))
	var frags []string
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOFも壊れた入力もここで打ち切る
			return frags
		case html.StartTagToken:
			name, _ := z.TagName()
			if skippedElements[string(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skippedElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text != "" {
				frags = append(frags, text)
			}
		}
	}
}

package model

import "regexp"

// urlPattern は追加・編集時の厳密なURL構文検証に使う正規表現。
// 許可スキームは http / https / ftp / ftps。ホストはドメイン名、
// localhost、またはIPv4アドレスを受け付ける。
var urlPattern = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// IsValidURL はURLが許可された形式かどうかを検証する。
func IsValidURL(url string) bool {
	return urlPattern.MatchString(url)
}

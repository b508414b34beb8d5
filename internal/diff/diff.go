// Package diff はテキスト断片列の行指向差分と変更量の算出を提供する。
package diff

import "strings"

// similarReplaceThreshold は置換ペアを行内変更として整形する類似度の下限。
const similarReplaceThreshold = 0.75

// Result は2つの断片列の比較結果。
type Result struct {
	// Transcript は行指向の差分テキスト。各行の先頭2文字がマーカーで、
	// "- "=旧のみ、"+ "=新のみ、"  "=共通、"? "=直前行の行内変更ヒント。
	Transcript string
	// Removed は旧断片列に存在し新断片列に対応付かなかった行数（変更量）。
	Removed int
}

// Compare は新旧の断片列を比較し、差分テキストと変更量を返す。
// 変更量は旧側から取り除かれた行の数であり、新側にのみ現れた行は数えない。
// 同一入力に対して常に同一の結果を返す。両方空なら変更量0・空テキスト。
func Compare(current, previous []string) Result {
	var b strings.Builder
	removed := 0

	for _, op := range opcodesOf(previous, current) {
		switch op.tag {
		case opEqual:
			for _, line := range previous[op.i1:op.i2] {
				writeLine(&b, "  ", line)
			}
		case opDelete:
			for _, line := range previous[op.i1:op.i2] {
				writeLine(&b, "- ", line)
				removed++
			}
		case opInsert:
			for _, line := range current[op.j1:op.j2] {
				writeLine(&b, "+ ", line)
			}
		case opReplace:
			removed += writeReplace(&b, previous[op.i1:op.i2], current[op.j1:op.j2])
		}
	}

	return Result{Transcript: b.String(), Removed: removed}
}

// Magnitude は変更量のみを返す。
func Magnitude(current, previous []string) int {
	return Compare(current, previous).Removed
}

// writeReplace は置換区間を整形する。旧行と新行を位置順に対にし、
// 十分似ている対には行内変更ヒント（"? "行）を付ける。余った行は
// 片側のみの削除・追加として出力する。取り除かれた旧行数を返す。
func writeReplace(b *strings.Builder, older, newer []string) int {
	n := len(older)
	if len(newer) < n {
		n = len(newer)
	}

	for i := 0; i < n; i++ {
		writePair(b, older[i], newer[i])
	}
	for _, line := range older[n:] {
		writeLine(b, "- ", line)
	}
	for _, line := range newer[n:] {
		writeLine(b, "+ ", line)
	}

	return len(older)
}

// writePair は旧行と新行の対を出力する。
func writePair(b *strings.Builder, older, newer string) {
	oldRunes, newRunes := []rune(older), []rune(newer)

	if similarity(oldRunes, newRunes) < similarReplaceThreshold {
		writeLine(b, "- ", older)
		writeLine(b, "+ ", newer)
		return
	}

	oldHint := make([]rune, len(oldRunes))
	newHint := make([]rune, len(newRunes))
	for i := range oldHint {
		oldHint[i] = ' '
	}
	for i := range newHint {
		newHint[i] = ' '
	}

	for _, op := range opcodesOf(oldRunes, newRunes) {
		switch op.tag {
		case opReplace:
			fillHint(oldHint, op.i1, op.i2, '^')
			fillHint(newHint, op.j1, op.j2, '^')
		case opDelete:
			fillHint(oldHint, op.i1, op.i2, '-')
		case opInsert:
			fillHint(newHint, op.j1, op.j2, '+')
		}
	}

	writeLine(b, "- ", older)
	if hint := strings.TrimRight(string(oldHint), " "); hint != "" {
		writeLine(b, "? ", hint)
	}
	writeLine(b, "+ ", newer)
	if hint := strings.TrimRight(string(newHint), " "); hint != "" {
		writeLine(b, "? ", hint)
	}
}

func fillHint(hint []rune, lo, hi int, marker rune) {
	for i := lo; i < hi; i++ {
		hint[i] = marker
	}
}

func writeLine(b *strings.Builder, prefix, line string) {
	b.WriteString(prefix)
	b.WriteString(line)
	b.WriteByte('\n')
}

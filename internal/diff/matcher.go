package diff

import "sort"

// block は2つの列の間で一致した区間を表す。
// aの位置a、bの位置bからsize個の要素が一致する。
type block struct {
	a, b, size int
}

// opTag は編集操作の種別。
type opTag int

const (
	opEqual opTag = iota
	opDelete
	opInsert
	opReplace
)

// opcode は a[i1:i2] を b[j1:j2] に変換する1つの編集操作を表す。
type opcode struct {
	tag            opTag
	i1, i2, j1, j2 int
}

// findLongestMatch は a[alo:ahi] と b[blo:bhi] の最長一致区間を返す。
// 同じ長さの候補が複数ある場合はaの先頭寄り、次にbの先頭寄りを選ぶため決定的。
func findLongestMatch[T comparable](a []T, alo, ahi, blo, bhi int, b2j map[T][]int) block {
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}

	for i := alo; i < ahi; i++ {
		newj2len := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}

	return block{besti, bestj, bestsize}
}

// matchingBlocks は一致区間を位置昇順で返す。末尾に番兵 (len(a), len(b), 0) を含む。
func matchingBlocks[T comparable](a, b []T) []block {
	b2j := make(map[T][]int, len(b))
	for j, elem := range b {
		b2j[elem] = append(b2j[elem], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(a), 0, len(b)}}
	var matched []block

	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		m := findLongestMatch(a, s.alo, s.ahi, s.blo, s.bhi, b2j)
		if m.size == 0 {
			continue
		}
		matched = append(matched, m)
		if s.alo < m.a && s.blo < m.b {
			queue = append(queue, span{s.alo, m.a, s.blo, m.b})
		}
		if m.a+m.size < s.ahi && m.b+m.size < s.bhi {
			queue = append(queue, span{m.a + m.size, s.ahi, m.b + m.size, s.bhi})
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].a != matched[j].a {
			return matched[i].a < matched[j].a
		}
		return matched[i].b < matched[j].b
	})

	// 隣接する一致区間を結合する
	var blocks []block
	for _, m := range matched {
		if n := len(blocks); n > 0 &&
			blocks[n-1].a+blocks[n-1].size == m.a &&
			blocks[n-1].b+blocks[n-1].size == m.b {
			blocks[n-1].size += m.size
			continue
		}
		blocks = append(blocks, m)
	}

	return append(blocks, block{len(a), len(b), 0})
}

// opcodesOf は a を b に変換する編集操作の列を返す。
func opcodesOf[T comparable](a, b []T) []opcode {
	var ops []opcode
	i, j := 0, 0

	for _, m := range matchingBlocks(a, b) {
		tag := opTag(-1)
		switch {
		case i < m.a && j < m.b:
			tag = opReplace
		case i < m.a:
			tag = opDelete
		case j < m.b:
			tag = opInsert
		}
		if tag >= 0 {
			ops = append(ops, opcode{tag, i, m.a, j, m.b})
		}
		i, j = m.a+m.size, m.b+m.size
		if m.size > 0 {
			ops = append(ops, opcode{opEqual, m.a, i, m.b, j})
		}
	}

	return ops
}

// similarity は2つの列の類似度を 2*一致数/(len(a)+len(b)) で返す。
func similarity[T comparable](a, b []T) float64 {
	if len(a)+len(b) == 0 {
		return 1
	}
	matches := 0
	for _, m := range matchingBlocks(a, b) {
		matches += m.size
	}
	return 2 * float64(matches) / float64(len(a)+len(b))
}

package model

// PropertyChange は選択中リソースへ一括適用する属性変更を表す閉じたバリアント。
// 動的な属性名による変更は許さず、変更可能な属性ごとに型付きの値を持つ。
type PropertyChange interface {
	isPropertyChange()
}

// URLChange はURLの変更。空文字列は「未設定のプレースホルダー」として許容される。
type URLChange struct {
	URL string
}

// FavoriteChange はお気に入りフラグの変更。
type FavoriteChange struct {
	Favorite bool
}

// TimeoutChange はフェッチタイムアウト（秒）の変更。正の値のみ有効。
type TimeoutChange struct {
	Seconds int
}

// DiffThresholdChange は有意変更の閾値（変更行数）の変更。正の値のみ有効。
type DiffThresholdChange struct {
	Lines int
}

func (URLChange) isPropertyChange()           {}
func (FavoriteChange) isPropertyChange()      {}
func (TimeoutChange) isPropertyChange()       {}
func (DiffThresholdChange) isPropertyChange() {}

package dashboard

import "github.com/chabakapro/admin/internal/model"

// TabDashboard はダッシュボード（概要）タブ。
// それ以外のタブはリソース名をそのまま使う。
const TabDashboard = "dashboard"

// ViewState は管理画面の表示状態（タブ・検索語・状態フィルタ）を表す値オブジェクト。
type ViewState struct {
	Tab    string `json:"tab"`
	Search string `json:"search"`
	Status string `json:"status"`
}

// NewViewState は初期状態（ダッシュボードタブ、フィルタなし）を返す。
func NewViewState() ViewState {
	return ViewState{Tab: TabDashboard, Status: StatusAll}
}

// SelectTab はタブを切り替えた新しい状態を返す。
// 検索語と状態フィルタはリセットされる。
func (v ViewState) SelectTab(tab string) ViewState {
	return ViewState{Tab: tab, Status: StatusAll}
}

// WithSearch は検索語を設定した新しい状態を返す。
func (v ViewState) WithSearch(search string) ViewState {
	v.Search = search
	return v
}

// WithStatus は状態フィルタを設定した新しい状態を返す。空文字は "all" として扱う。
func (v ViewState) WithStatus(status string) ViewState {
	if status == "" {
		status = StatusAll
	}
	v.Status = status
	return v
}

// Resource はタブに対応するリソースを返す。ダッシュボードタブなどリソースでない場合はfalse。
func (v ViewState) Resource() (model.Resource, bool) {
	return model.ParseResource(v.Tab)
}

// 包 model 定义热榜记录的数据模型与三种输出共享的字段顺序。
package model

import "time"

// UTC8 为固定东八区。记录时间戳与输出目录名均使用该时区，
// 不受运行主机时区影响。
var UTC8 = time.FixedZone("UTC+8", 8*60*60)

// Record 表示榜单上的一条热搜记录，提取完成后不再修改。
// JSON 字段顺序与 Header 保持一致。
type Record struct {
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	Heat      string `json:"heat"`
	Tag       string `json:"tag"`
	Brief     string `json:"brief"`
	Link      string `json:"link"`
	Trend     string `json:"trend"`
	FetchedAt string `json:"fetched_at"`
	Source    string `json:"source"`
}

// Header 返回三种输出统一使用的列名顺序。
func Header() []string {
	return []string{"rank", "title", "heat", "tag", "brief", "link", "trend", "fetched_at", "source"}
}

// Cells 按 Header 顺序返回记录的各列值；xlsx 与 csv 共用该映射，
// 保证不同格式的单元格内容完全一致。
func (r Record) Cells() []any {
	return []any{r.Rank, r.Title, r.Heat, r.Tag, r.Brief, r.Link, r.Trend, r.FetchedAt, r.Source}
}

// 包 extract 提供热榜页解析：
// - 依据选择器预设从榜单页提取卡片字段
// - 支持 "选择器@属性" 以及 "||" 多方案回退，容忍页面类名改版
// - 单个字段缺失或解析失败仅降级为默认值，不影响其余字段与卡片
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"go-baidu-hotboard/internal/model"
	"go-baidu-hotboard/internal/rules"
)

// fetched_at 的固定格式，东八区时形如 "2006-01-02 15:04:05 +0800"。
const timeLayout = "2006-01-02 15:04:05 -0700"

// Run 为一次抓取的共享字段：同一批记录的 fetched_at 与 source 完全相同。
type Run struct {
	FetchedAt string
	Source    string
}

// NewRun 以东八区表示抓取时刻，生成本次运行的共享字段。
func NewRun(now time.Time, source string) Run {
	return Run{FetchedAt: now.In(model.UTC8).Format(timeLayout), Source: source}
}

// Records 依据板块规则提取全部卡片记录，按页面顺序返回（含空标题，未过滤）。
// 容器选择器全部未命中时返回空序列而非错误。
func Records(doc *goquery.Document, board rules.Board, run Run) []model.Record {
	cards := findCards(doc, board.Card)
	if cards == nil {
		return nil
	}
	out := make([]model.Record, 0, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		out = append(out, record(card, i+1, board, run))
	})
	return out
}

// findCards 依次尝试容器候选，第一个命中至少一个节点的选择器生效。
// 只取单一候选的结果，绝不合并多个候选的命中（回退而非并集）。
func findCards(doc *goquery.Document, chain string) *goquery.Selection {
	for _, sel := range alternatives(chain) {
		if s := doc.Find(sel); s.Length() > 0 {
			return s
		}
	}
	return nil
}

// record 提取单张卡片。各字段相互独立：
// 未命中或解析失败的字段取各自默认值（空串，rank 取页面序号）。
func record(card *goquery.Selection, pos int, board rules.Board, run Run) model.Record {
	r := model.Record{
		Rank:      pos,
		Title:     fieldText(card, board.Title),
		Heat:      fieldText(card, board.Heat),
		Tag:       fieldText(card, board.Tag),
		Brief:     fieldText(card, board.Brief),
		Link:      fieldText(card, board.Link),
		Trend:     fieldText(card, board.Trend),
		FetchedAt: run.FetchedAt,
		Source:    run.Source,
	}
	if v, ok := findVal(card, board.Rank); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			r.Rank = n
		}
	}
	return r
}

// KeepTitled 过滤掉标题为空的记录，落盘前执行。
func KeepTitled(in []model.Record) []model.Record {
	out := make([]model.Record, 0, len(in))
	for _, r := range in {
		if r.Title != "" {
			out = append(out, r)
		}
	}
	return out
}

// fieldText 求值字段表达式，未命中时返回空串默认值。
func fieldText(scope *goquery.Selection, expr string) string {
	v, _ := findVal(scope, expr)
	return v
}

// findVal 按 "||" 顺序尝试候选表达式，第一个命中节点的候选即生效，
// 即便取到的值为空也不再向后尝试（回退只兜底缺失节点，不兜底空值）。
func findVal(scope *goquery.Selection, expr string) (string, bool) {
	for _, alt := range alternatives(expr) {
		if v, ok := findOne(scope, alt); ok {
			return v, true
		}
	}
	return "", false
}

// findOne 求值单个表达式：
// - "."：当前卡片的文本
// - "@attr"：当前卡片的属性（属性存在才算命中）
// - "sel@attr"：第一个匹配后代的属性
// - "sel"：第一个匹配后代的文本
func findOne(scope *goquery.Selection, expr string) (string, bool) {
	if expr == "" {
		return "", false
	}
	if expr == "." {
		return text(scope), true
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		if sel == "" {
			v, ok := scope.Attr(attr)
			return strings.TrimSpace(v), ok
		}
		el := scope.Find(sel)
		if el.Length() == 0 {
			return "", false
		}
		v, _ := el.First().Attr(attr)
		return strings.TrimSpace(v), true
	}
	el := scope.Find(expr)
	if el.Length() == 0 {
		return "", false
	}
	return text(el.First()), true
}

// alternatives 拆分 "||" 回退链并去除空白候选。
func alternatives(expr string) []string {
	var out []string
	for _, p := range strings.Split(expr, "||") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var spaceRe = regexp.MustCompile(`\s+`)

// text 收集节点内全部文本片段，以空格连接并压缩空白，近似页面可见文本。
func text(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return spaceRe.ReplaceAllString(strings.Join(parts, " "), " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

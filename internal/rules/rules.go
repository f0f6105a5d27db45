// 包 rules 负责加载并提供榜单解析规则（selectors.yaml），
// 以预设名（如 realtime）组织 CSS 选择器链，用于热榜页卡片提取。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个榜单预设的解析规则集合。
type Preset struct {
	Board *Board `yaml:"board"`
}

// Board 描述榜单页的选择器：
// - card：每张热搜卡片的容器，依次尝试候选，首个命中的选择器生效
// - 其余字段：取文本或属性（支持 a[href]@href / @attr / .）
// 所有字段均可用 "||" 连接多个候选做回退，以容忍页面类名改版。
type Board struct {
	Card  string `yaml:"card"`
	Rank  string `yaml:"rank"`
	Title string `yaml:"title"`
	Heat  string `yaml:"heat"`
	Tag   string `yaml:"tag"`
	Brief string `yaml:"brief"`
	Link  string `yaml:"link"`
	Trend string `yaml:"trend"`
}

// Default 返回内置的百度实时热搜预设：
// 前半段为当前页面的哈希类名，"||" 后为类名漂移时的通用回退。
func Default() Board {
	return Board{
		Card:  "div.category-wrap_iQLoo||div.category-wrap",
		Rank:  ".index_1Ew5p||.index",
		Title: ".c-single-text-ellipsis",
		Heat:  ".hot-index_1Bl1a||.hot-index",
		Tag:   ".tag_1z8Gk||.tag",
		Brief: ".hot-desc_1m_jR||.hot-desc",
		Link:  "a[href]@href",
		Trend: ".trend-icon||.trend",
	}
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "realtime"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "realtime"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	// 不区分大小写匹配
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["realtime"]; ok {
		return p, true
	}
	// 名称与 realtime 均未命中：明确落空，由 Resolve 回退内置预设
	return Preset{}, false
}

// Resolve 返回名称对应的板块规则；规则文件缺失或未命中时使用内置预设。
func Resolve(r *Rules, name string) Board {
	if p, ok := r.GetPreset(name); ok && p.Board != nil {
		return *p.Board
	}
	return Default()
}

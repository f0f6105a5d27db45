// 包 runner 负责单次抓取的主流程编排：
// - 抓取榜单页并解析 DOM
// - 按规则提取卡片记录并过滤空标题
// - 写出三种产物，按需归档历史
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go-baidu-hotboard/internal/config"
	"go-baidu-hotboard/internal/extract"
	"go-baidu-hotboard/internal/fetch"
	"go-baidu-hotboard/internal/logx"
	"go-baidu-hotboard/internal/model"
	"go-baidu-hotboard/internal/output"
	"go-baidu-hotboard/internal/rules"
	"go-baidu-hotboard/internal/store"
)

// Runner 单次抓取执行器，持有配置/规则/HTTP 客户端/可选归档。
type Runner struct {
	cfg     *config.Config
	board   rules.Board
	fetch   *fetch.Client
	history *store.History
}

// Result 为一次运行的结果摘要。
type Result struct {
	Extracted int            // 提取到的卡片数（含空标题，未过滤）
	Records   []model.Record // 过滤后实际落盘的记录
	Dir       string         // 输出目录（预览模式为空）
	Files     []string       // 实际写出的文件路径
}

// New 创建 Runner；history 可为 nil（归档未启用）。
func New(cfg *config.Config, board rules.Board, cl *fetch.Client, h *store.History) *Runner {
	return &Runner{cfg: cfg, board: board, fetch: cl, history: h}
}

// Run 执行一轮抓取：抓页→解析→提取→过滤→落盘→归档。
// preview 为真时只提取并逐条打印，不写任何文件。
// 抓取或解析失败即中止，不产生任何输出目录或文件。
func (r *Runner) Run(ctx context.Context, preview bool) (*Result, error) {
	page, err := r.fetch.Text(ctx, r.cfg.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("fetch board: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// 同一次时钟读取：记录的 fetched_at 与输出目录的时间戳保持一致
	now := time.Now().In(model.UTC8)
	all := extract.Records(doc, r.board, extract.NewRun(now, r.cfg.TargetURL))
	kept := extract.KeepTitled(all)
	logx.Infof("提取到 %d 张卡片，过滤空标题后剩 %d 条", len(all), len(kept))
	res := &Result{Extracted: len(all), Records: kept}

	if preview {
		for _, rec := range kept {
			logx.Infof("- #%d %s 热度=%s 标签=%s 链接=%s", rec.Rank, rec.Title, rec.Heat, rec.Tag, rec.Link)
		}
		return res, nil
	}

	dir, stamp, err := output.RunDir(r.cfg.Output.Dir, r.cfg.Output.Prefix, now)
	if err != nil {
		return nil, fmt.Errorf("prepare run dir: %w", err)
	}
	files, err := output.WriteAll(kept, dir, r.cfg.Output.Prefix, stamp, r.cfg.Output.Formats)
	if err != nil {
		return nil, err
	}
	res.Dir, res.Files = dir, files

	// 归档失败不中止运行：产物已写出，历史只是附加能力
	if r.history != nil {
		if err := r.history.SaveRun(ctx, stamp, kept); err != nil {
			logx.Warnf("写入历史归档失败：%v", err)
		} else if err := r.history.CleanOld(ctx, r.cfg.History.KeepDays); err != nil {
			logx.Warnf("清理过期归档失败：%v", err)
		}
	}
	return res, nil
}

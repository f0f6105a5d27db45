// 命令行入口：
// - 解析 flags 与 settings.yaml/selectors.yaml
// - 初始化日志与 HTTP 客户端
// - 支持预览模式（-preview）与历史归档查询（-history N）
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go-baidu-hotboard/internal/config"
	"go-baidu-hotboard/internal/fetch"
	"go-baidu-hotboard/internal/logx"
	"go-baidu-hotboard/internal/rules"
	"go-baidu-hotboard/internal/runner"
	"go-baidu-hotboard/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		rulesPath  = flag.String("rules", "selectors.yaml", "path to selectors.yaml (optional)")
		outDir     = flag.String("out", "", "override OUTPUT.dir")
		preview    = flag.Bool("preview", false, "fetch and print records without writing files")
		historyN   = flag.Int("history", 0, "print the last N archived runs and exit")
	)
	flag.Parse()

	// 1) 加载配置与规则
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	// 2) 初始化日志：级别/格式/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)

	rl, err := loadRules(*rulesPath)
	if err != nil {
		logx.Errorf("加载规则文件失败：%v", err)
		os.Exit(1)
	}
	board := rules.Resolve(rl, cfg.Preset)

	ctx := context.Background()

	// 3) 历史查询模式：只读归档后退出
	if *historyN > 0 {
		if err := listHistory(ctx, cfg, *historyN); err != nil {
			logx.Errorf("查询历史归档失败：%v", err)
			os.Exit(1)
		}
		return
	}

	// 4) 初始化 HTTP 客户端（含代理/请求头/重试策略）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		Headers:    cfg.Headers,
		Retry: fetch.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     time.Duration(cfg.Retry.BackoffFactor * float64(time.Second)),
			Statuses:    cfg.Retry.Statuses,
		},
	})
	if err != nil {
		logx.Errorf("初始化 HTTP 客户端失败：%v", err)
		os.Exit(1)
	}

	// 5) 可选历史归档：打开失败只降级告警，不影响本次抓取
	var hist *store.History
	if cfg.History.Enabled && !*preview {
		if h, err := store.Open(cfg.History.DSN); err == nil {
			hist = h
			defer hist.Close()
		} else {
			logx.Warnf("打开历史归档失败，跳过归档：%v", err)
		}
	}

	// 6) 运行主流程
	logx.Infof("开始抓取：%s 预设=%s", cfg.TargetURL, cfg.Preset)
	res, err := runner.New(cfg, board, cl, hist).Run(ctx, *preview)
	if err != nil {
		logx.Errorf("运行失败：%v", err)
		os.Exit(1)
	}

	if *preview {
		logx.Infof("预览完成：共 %d 条记录（未写出任何文件）", len(res.Records))
		return
	}
	logx.Infof("✅ 已保存 %d 条热搜记录到 %s", len(res.Records), res.Dir)
	for _, f := range res.Files {
		logx.Infof("- %s", f)
	}
}

// loadRules 加载规则文件：文件缺失时回退内置预设（返回 nil 规则集），
// 文件存在但无法解析则报错，避免用户自带的选择器被悄悄忽略。
func loadRules(path string) (*rules.Rules, error) {
	if path == "" {
		return nil, nil
	}
	r, err := rules.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

// listHistory 打印最近 n 次归档运行的时间戳与记录数。
// 归档未启用且数据库不存在时报错，不会顺带建出空库文件。
func listHistory(ctx context.Context, cfg *config.Config, n int) error {
	if !cfg.History.Enabled {
		if _, err := os.Stat(cfg.History.DSN); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("history db %s not found (enable HISTORY or run an archived fetch first)", cfg.History.DSN)
			}
			return fmt.Errorf("stat history db %s: %w", cfg.History.DSN, err)
		}
	}
	h, err := store.Open(cfg.History.DSN)
	if err != nil {
		return err
	}
	defer h.Close()
	runs, err := h.Runs(ctx, n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		logx.Infof("历史归档为空：%s", cfg.History.DSN)
		return nil
	}
	for _, r := range runs {
		logx.Infof("%s  %d 条记录", r.Stamp, r.Count)
	}
	return nil
}

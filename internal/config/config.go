// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
// 配置文件缺失时直接使用内置默认值，保证零配置可运行。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultTargetURL 为百度实时热搜榜地址。
const DefaultTargetURL = "https://top.baidu.com/board?tab=realtime"

type Config struct {
	TargetURL      string            `yaml:"TARGET_URL"`
	Preset         string            `yaml:"PRESET"`
	TimeoutSeconds int               `yaml:"TIMEOUT_SECONDS"`
	Headers        map[string]string `yaml:"HEADERS"`
	Retry          Retry             `yaml:"RETRY"`
	Output         Output            `yaml:"OUTPUT"`
	History        History           `yaml:"HISTORY"`
	Proxy          Proxy             `yaml:"PROXY"`
	LogLevel       string            `yaml:"LOG_LEVEL"`
	LogFormat      string            `yaml:"LOG_FORMAT"` // text|json|pretty
	LogColor       string            `yaml:"LOG_COLOR"`  // auto|always|never
}

// Retry 为瞬时失败的自动重试参数。
type Retry struct {
	MaxAttempts   int     `yaml:"max_attempts"`
	BackoffFactor float64 `yaml:"backoff_factor"` // 秒；第 n 次重试前等待 factor·2^(n-1)
	Statuses      []int   `yaml:"statuses"`
}

// Output 描述输出目录与文件格式。
type Output struct {
	Dir     string   `yaml:"dir"`
	Prefix  string   `yaml:"prefix"`
	Formats []string `yaml:"formats"` // xlsx|csv|json 的子集
}

// History 为可选的运行历史归档（SQLite）。
type History struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	KeepDays int    `yaml:"keep_days"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

func Load(path string) (*Config, error) {
	// Load 读取 YAML、展开 ${VAR} 环境变量并反序列化为 Config，
	// 同时进行基础校验与默认值填充。.env 可选，不存在不报错。
	_ = godotenv.Load()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c := &Config{}
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("validate config: %w", err)
			}
			return c, nil
		}
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
	if c.TargetURL == "" {
		c.TargetURL = DefaultTargetURL
	}
	if c.Preset == "" {
		c.Preset = "realtime"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	if c.TimeoutSeconds < 1 {
		return errors.New("TIMEOUT_SECONDS must be >= 1")
	}
	if len(c.Headers) == 0 {
		c.Headers = map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) " +
				"Chrome/124.0.0.0 Safari/537.36",
			"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
			"Cache-Control":   "no-cache",
		}
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("RETRY.max_attempts must be >= 1")
	}
	if c.Retry.BackoffFactor < 0 {
		return errors.New("RETRY.backoff_factor must be >= 0")
	}
	if c.Retry.BackoffFactor == 0 {
		c.Retry.BackoffFactor = 0.6
	}
	if len(c.Retry.Statuses) == 0 {
		c.Retry.Statuses = []int{429, 500, 502, 503, 504}
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Prefix == "" {
		c.Output.Prefix = "baidu_hot"
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{"xlsx", "csv", "json"}
	}
	for i, f := range c.Output.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "xlsx", "csv", "json":
			c.Output.Formats[i] = f
		default:
			return fmt.Errorf("unsupported output format: %q", f)
		}
	}
	if c.History.DSN == "" {
		c.History.DSN = "./history.db"
	}
	if c.History.KeepDays < 0 {
		return errors.New("HISTORY.keep_days must be >= 0")
	}
	if c.History.KeepDays == 0 {
		c.History.KeepDays = 30
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	// LogLevel 为空时由 logx 按 info 处理
	return nil
}

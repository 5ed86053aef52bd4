package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// ConfigName 是自动发现的配置文件名（扩展名 yaml/json/toml 均可）。
	ConfigName = "strmgen"
	// EnvPrefix 是环境变量前缀，例如 STRMGEN_PREFIX。
	EnvPrefix = "STRMGEN"

	DefaultOut          = "strm"
	DefaultInterval     = 200 * time.Millisecond
	DefaultConcurrency  = 4
	DefaultReportFormat = "json"
)

// CLIArgs 是 CLI 暴露的参数，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖配置中的 apply: true。
type CLIArgs struct {
	ConfigFile string

	Prefix    string
	PrefixSet bool

	Out    string
	OutSet bool

	Interval    time.Duration
	IntervalSet bool

	Immediate    bool
	ImmediateSet bool

	Overwrite    bool
	OverwriteSet bool

	Apply    bool
	ApplySet bool

	ReportFormat    string
	ReportFormatSet bool
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigFile 是实际读取的配置文件（未读取任何文件时为空）。
	ConfigFile string

	Prefix string
	// Out 是 clean + absolute 的输出目录。
	Out string

	Interval    time.Duration
	Immediate   bool
	Concurrency int

	Overwrite bool
	Apply     bool

	ReportFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置（文件 + STRMGEN_* 环境变量），然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) --config 显式指定：必须存在
// 2) 否则依次查找 <cwd>/strmgen.{yaml,json,toml} 与 ~/.config/strmgen/strmgen.*（可选）
//
// 覆盖优先级（固定）：CLI 显式参数 > 环境变量 > 配置文件 > 内置默认。
// out 的相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	v := viper.New()
	v.SetDefault("prefix", "")
	v.SetDefault("out", DefaultOut)
	v.SetDefault("interval", DefaultInterval.String())
	v.SetDefault("immediate", false)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("overwrite", false)
	v.SetDefault("apply", false)
	v.SetDefault("report_format", DefaultReportFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	cfgPath, err := readConfig(v, cwdAbs, cli.ConfigFile)
	if err != nil {
		return EffectiveConfig{}, err
	}

	return merge(v, cwdAbs, cli, cfgPath)
}

func readConfig(v *viper.Viper, cwdAbs, explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		p := absCleanFrom(cwdAbs, explicit)
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return "", &Error{Code: ErrCodeNotFound, Path: p, Err: err}
			}
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		return p, nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(cwdAbs)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			// 不存在不算错误：全部走默认值/环境变量/CLI。
			return "", nil
		}
		return "", &Error{Code: ErrCodeInvalid, Path: v.ConfigFileUsed(), Err: err}
	}
	return v.ConfigFileUsed(), nil
}

func merge(v *viper.Viper, cwdAbs string, cli CLIArgs, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	prefix := v.GetString("prefix")
	if cli.PrefixSet {
		prefix = cli.Prefix
	}
	prefix = strings.TrimSpace(prefix)
	if strings.ContainsAny(prefix, "\r\n") {
		return invalid(fmt.Errorf("prefix 必须是单行"))
	}

	out := v.GetString("out")
	if cli.OutSet {
		out = cli.Out
	}
	if strings.TrimSpace(out) == "" {
		return invalid(fmt.Errorf("out 不能为空"))
	}

	interval := DefaultInterval
	if cli.IntervalSet {
		interval = cli.Interval
	} else {
		raw := strings.TrimSpace(v.GetString("interval"))
		d, err := time.ParseDuration(raw)
		if err != nil {
			return invalid(fmt.Errorf("interval 必须是时长（例如 200ms）：%q", raw))
		}
		interval = d
	}
	if interval < 0 {
		return invalid(fmt.Errorf("interval 不能为负：%s", interval))
	}

	immediate := v.GetBool("immediate")
	if cli.ImmediateSet {
		immediate = cli.Immediate
	}

	// 文档约定：范围 [1, 32]；超出截断。
	concurrency := v.GetInt("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	overwrite := v.GetBool("overwrite")
	if cli.OverwriteSet {
		overwrite = cli.Overwrite
	}

	apply := v.GetBool("apply")
	if cli.ApplySet {
		apply = cli.Apply
	}

	format := v.GetString("report_format")
	if cli.ReportFormatSet {
		format = cli.ReportFormat
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if err := validateReportFormat(format); err != nil {
		return invalid(err)
	}

	return EffectiveConfig{
		ConfigFile:   cfgPath,
		Prefix:       prefix,
		Out:          absCleanFrom(cwdAbs, out),
		Interval:     interval,
		Immediate:    immediate,
		Concurrency:  concurrency,
		Overwrite:    overwrite,
		Apply:        apply,
		ReportFormat: format,
	}, nil
}

func validateReportFormat(f string) error {
	switch f {
	case "json", "yaml":
		return nil
	case "":
		return fmt.Errorf("report_format 不能为空")
	default:
		return fmt.Errorf("report_format 只能是 json 或 yaml，实际是 %q", f)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

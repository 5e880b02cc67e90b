package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModeSingle  = "single"
	ModeForking = "forking"
)

type Config struct {
	Server struct {
		Port     string        // 监听端口（字符串，直接写入 SERVER_PORT）
		IPv4     string        // 绑定地址，空表示所有地址
		Mode     string        // single | forking
		Root     string        // 服务根目录（Load 之后为规范化的绝对路径）
		MaxConns int           // forking 模式下同时处理的最大连接数，0 表示不限
		DeadLine time.Duration // 单个连接的读写期限，0 表示不设置
		IsGzip   bool          // 静态文件是否允许 gzip
	}

	Mime struct {
		TablePath string // mime.types 文件路径
		Default   string // 默认 MIME 类型
	}

	Logger struct {
		LogToFile bool
		FilePath  string
		WithTime  bool
		Debug     bool
	}

	StartTime time.Time `mapstructure:"-"`
}

// 配置项与命令行参数的对应关系
var flagKeys = map[string]string{
	"concurrency":  "server.mode",
	"port":         "server.port",
	"root":         "server.root",
	"max-conns":    "server.maxconns",
	"deadline":     "server.deadline",
	"gzip":         "server.isgzip",
	"mimetypes":    "mime.tablepath",
	"default-mime": "mime.default",
	"log-file":     "logger.filepath",
	"debug":        "logger.debug",
}

// Flags 声明命令行参数（默认值为空，真正的默认值由 setDefaults 给出）
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("cgihttpd", pflag.ContinueOnError)
	fs.StringP("concurrency", "c", ModeSingle, "Single or Forking mode (single|forking)")
	fs.StringP("mimetypes", "m", "/etc/mime.types", "Path to mimetypes file")
	fs.StringP("default-mime", "M", "text/plain", "Default mimetype")
	fs.StringP("port", "p", "9898", "Port to listen on")
	fs.StringP("root", "r", "www", "Root directory")
	fs.String("config", "", "Path to config file (yml)")
	fs.Int("max-conns", 0, "Max concurrent connections in forking mode (0 = unlimited)")
	fs.Duration("deadline", 0, "Per-connection read/write deadline (0 = none)")
	fs.Bool("gzip", false, "Compress static files for clients accepting gzip")
	fs.String("log-file", "", "Also append logs to this file")
	fs.Bool("debug", false, "Enable debug logging")
	fs.BoolP("help", "h", false, "Display help message")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "9898")
	v.SetDefault("server.ipv4", "")
	v.SetDefault("server.mode", ModeSingle)
	v.SetDefault("server.root", "www")
	v.SetDefault("server.maxconns", 0)
	v.SetDefault("server.deadline", time.Duration(0))
	v.SetDefault("server.isgzip", false)
	v.SetDefault("mime.tablepath", "/etc/mime.types")
	v.SetDefault("mime.default", "text/plain")
	v.SetDefault("logger.logtofile", false)
	v.SetDefault("logger.filepath", "")
	v.SetDefault("logger.withtime", true)
	v.SetDefault("logger.debug", false)
}

// Load 读取配置：默认值 < 配置文件 < 环境变量(.env) < 命令行参数
// fs 可以为 nil（测试或嵌入使用）。
func Load(fs *pflag.FlagSet) (*Config, error) {
	// .env 不存在不是错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("CGIHTTPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Logger.FilePath != "" {
		cfg.Logger.LogToFile = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置并规范化根目录
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case ModeSingle, ModeForking:
	default:
		return fmt.Errorf("invalid concurrency mode %q (want %s or %s)", c.Server.Mode, ModeSingle, ModeForking)
	}
	if c.Server.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.Mime.Default == "" {
		return errors.New("default mimetype must not be empty")
	}

	root, err := filepath.Abs(c.Server.Root)
	if err != nil {
		return fmt.Errorf("root %s: %w", c.Server.Root, err)
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("root %s: %w", c.Server.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root %s: %w", c.Server.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", c.Server.Root)
	}
	c.Server.Root = root
	return nil
}

// Addr 返回监听地址
func (c *Config) Addr() string {
	return c.Server.IPv4 + ":" + c.Server.Port
}

// GoVersion 返回Go版本
func GoVersion() string {
	return strings.TrimPrefix(runtime.Version(), "go")
}

var __VERSION__ = "0.1.0"
var __SERVER_NAME__ = "cgihttpd"

func ServerVersion() string {
	return __VERSION__
}

func ServerName() string {
	return __SERVER_NAME__
}

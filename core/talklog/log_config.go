package talklog

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

type LogConfig struct {
	LogToFile bool
	FilePath  string
	WithTime  bool
	Debug     bool // 是否输出 DEBUG 级别日志
}

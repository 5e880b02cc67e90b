package talklog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Singert/cgihttpd/core/utils"
)

var (
	logConfig  LogConfig
	fileHandle *os.File
	output     io.Writer = os.Stdout
	logLock    sync.Mutex
)
var (
	prefixLock sync.RWMutex
	logPrefix  map[uint64]string = make(map[uint64]string)
)

// 匹配 ANSI 转义序列
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

var (
	logBuffer     []string     // 环形缓存日志
	maxBufferSize = 1000       // 最多缓存1000条日志
	bufferLock    sync.RWMutex // 缓存锁
)

// InitLogConfig 应用日志配置；如需写文件则打开（追加模式）
func InitLogConfig(lgcfg *LogConfig) error {
	logLock.Lock()
	defer logLock.Unlock()

	logConfig = *lgcfg
	bufferLock.Lock()
	logBuffer = nil
	bufferLock.Unlock()

	if fileHandle != nil {
		fileHandle.Close()
		fileHandle = nil
	}
	if !logConfig.LogToFile {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(logConfig.FilePath), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(logConfig.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	fileHandle = f
	return nil
}

// SetOutput 替换控制台输出（测试时用来捕获日志）
func SetOutput(w io.Writer) {
	logLock.Lock()
	defer logLock.Unlock()
	output = w
}

// Close 关闭日志文件
func Close() {
	logLock.Lock()
	defer logLock.Unlock()
	if fileHandle != nil {
		fileHandle.Close()
		fileHandle = nil
	}
}

// GID returns the goroutine ID of the current goroutine.
// This is a workaround for the lack of a built-in way to get the goroutine ID in Go.
// It parses the header line of runtime.Stack, so it is only meant for tagging log lines.
func GID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	var id uint64
	fmt.Sscanf(string(b), "goroutine %d ", &id)
	return id
}

func SetPrefix(gid uint64, prefix string) {
	prefixLock.Lock()
	defer prefixLock.Unlock()
	logPrefix[gid] = prefix
}

// ClearPrefix 连接结束时清理前缀，避免 map 无限增长
func ClearPrefix(gid uint64) {
	prefixLock.Lock()
	defer prefixLock.Unlock()
	delete(logPrefix, gid)
}

func logLine(color, level string, gid uint64, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	prefix := ""
	if logConfig.WithTime {
		prefix = fmt.Sprintf("[%s] ", time.Now().Format("2006-01-02 15:04:05"))
	}
	// 只为等级上色
	coloredLevel := fmt.Sprintf("%s[%s]%s", color, level, ColorReset)

	prefixLock.RLock()
	p := logPrefix[gid]
	prefixLock.RUnlock()
	modPrefix := ""
	if p != "" {
		modPrefix = fmt.Sprintf("[%s] ", p)
	}

	// 最终格式：时间戳 + 彩色等级 + 模块前缀 + GID + 正文
	line := fmt.Sprintf("%s%s %s[GID:%d] %s", prefix, coloredLevel, modPrefix, gid, msg)

	logLock.Lock()
	defer logLock.Unlock()

	fmt.Fprintln(output, line)

	bufferLock.Lock()
	logBuffer = append(logBuffer, stripANSI(line))
	if len(logBuffer) > maxBufferSize {
		logBuffer = logBuffer[len(logBuffer)-maxBufferSize:]
	}
	bufferLock.Unlock()

	if logConfig.LogToFile && fileHandle != nil {
		fileHandle.WriteString(stripANSI(line) + "\n")
	}
}

// stripANSI removes ANSI color escape codes from a string.
func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

func Boot(gid uint64, format string, a ...any) {
	logLine(ColorCyan, "BOOT", gid, format, a...)
}

func BootDone(duration time.Duration) {
	secs := float64(duration.Microseconds()) / 1e6
	logLine(ColorCyan, "BOOT", GID(), "服务器启动完成，用时 %.6f 秒", secs)
}

func Info(gid uint64, format string, a ...any) {
	logLine(ColorGreen, "INFO", gid, format, a...)
}

func Warn(gid uint64, format string, a ...any) {
	logLine(ColorYellow, "WARN", gid, format, a...)
}

func Error(gid uint64, format string, a ...any) {
	logLine(ColorRed, "ERROR", gid, format, a...)
}

func Debug(gid uint64, format string, a ...any) {
	if !logConfig.Debug {
		return
	}
	logLine(ColorGray, "DEBUG", gid, format, a...)
}

func Req(gid uint64, method, uri, query string) {
	if query != "" {
		uri += "?" + query
	}
	logLine(ColorCyan, "REQ", gid, "%s %s", method, uri)
}

func Hdr(gid uint64, key, value string) {
	logLine(ColorCyan, "HDR", gid, "%s: %s", key, strings.TrimSpace(value))
}

func Resp(gid uint64, status utils.HTTPStatus) {
	logLine(ColorCyan, "RESP", gid, "%s", status)
}

// Writer 返回一个按行写入日志的 io.Writer（用于转发子进程 stderr）
func Writer(gid uint64, level string) io.WriteCloser {
	return &lineWriter{gid: gid, level: level}
}

type lineWriter struct {
	gid   uint64
	level string
	buf   bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// 不完整的一行放回缓冲区
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (w *lineWriter) Close() error {
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
	return nil
}

func (w *lineWriter) emit(line string) {
	switch w.level {
	case "ERROR":
		Error(w.gid, "%s", line)
	case "INFO":
		Info(w.gid, "%s", line)
	default:
		Warn(w.gid, "%s", line)
	}
}

// GetRecentLogs 返回最近的缓存日志（不含颜色）
func GetRecentLogs() []string {
	bufferLock.RLock()
	defer bufferLock.RUnlock()

	// 返回副本以避免外部修改原始内容
	copied := make([]string, len(logBuffer))
	copy(copied, logBuffer)
	return copied
}

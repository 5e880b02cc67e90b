package handler

import (
	"os"
	"strings"

	"github.com/Singert/cgihttpd/core/config"
	"github.com/Singert/cgihttpd/core/request"
)

// 只有这些请求头会导出为 HTTP_* 环境变量
var cgiHeaders = []string{
	"Host",
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
	"Connection",
	"User-Agent",
}

// 由请求决定的变量；继承的环境中同名变量会被去掉
var cgiVars = map[string]bool{
	"DOCUMENT_ROOT":   true,
	"SERVER_PORT":     true,
	"QUERY_STRING":    true,
	"REMOTE_ADDR":     true,
	"REMOTE_PORT":     true,
	"REQUEST_METHOD":  true,
	"REQUEST_URI":     true,
	"SCRIPT_FILENAME": true,
}

// CGIEnv 为一次 CGI 调用构造环境变量列表（直接交给子进程，不修改本进程环境）
func CGIEnv(cfg *config.Config, r *request.Request) []string {
	env := inheritedEnv()

	env = append(env,
		"DOCUMENT_ROOT="+cfg.Server.Root,
		"SERVER_PORT="+cfg.Server.Port,
	)
	for _, kv := range [][2]string{
		{"QUERY_STRING", r.Query},
		{"REMOTE_ADDR", r.Host},
		{"REMOTE_PORT", r.Port},
		{"REQUEST_METHOD", r.Method},
		{"REQUEST_URI", r.URI},
		{"SCRIPT_FILENAME", r.Path},
	} {
		if kv[1] != "" {
			env = append(env, kv[0]+"="+kv[1])
		}
	}

	// 同名请求头出现多次时，最早到达的（列表中最靠后的）生效
	values := make(map[string]string)
	for _, hdr := range r.Headers {
		for _, name := range cgiHeaders {
			if hdr.Name == name {
				values[name] = hdr.Data
			}
		}
	}
	for _, name := range cgiHeaders {
		if v, ok := values[name]; ok {
			env = append(env, headerEnvName(name)+"="+v)
		}
	}
	return env
}

// headerEnvName Accept-Language -> HTTP_ACCEPT_LANGUAGE
func headerEnvName(name string) string {
	return "HTTP_" + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

// inheritedEnv 继承服务器自身的环境（PATH 等），去掉 HTTP_* 和 CGI 变量
func inheritedEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "HTTP_") || cgiVars[key] {
			continue
		}
		env = append(env, kv)
	}
	return env
}

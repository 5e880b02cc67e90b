package handler

import (
	"github.com/Singert/cgihttpd/core/request"
	"github.com/Singert/cgihttpd/core/talklog"
	"github.com/Singert/cgihttpd/core/utils"
)

// SendError 写出错误页面，返回传入的状态码（用于记录日志）
func SendError(r *request.Request, status utils.HTTPStatus) utils.HTTPStatus {
	talklog.Info(talklog.GID(), "Handling error: %s", status)

	writeHead(r, status, utils.DefaultErrorContentType)
	r.WriteString("<h1>" + status.String() + "</h1>")
	return status
}

// writeHead 写出状态行、Content-Type 以及额外的响应头，最后是空行
func writeHead(r *request.Request, status utils.HTTPStatus, contentType string, extra ...string) {
	r.WriteString(status.StatusLine())
	r.WriteString("Content-Type: " + contentType + "\r\n")
	for i := 0; i+1 < len(extra); i += 2 {
		r.WriteString(extra[i] + ": " + extra[i+1] + "\r\n")
	}
	r.WriteString("\r\n")
}

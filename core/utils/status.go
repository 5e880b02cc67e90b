package utils

import "fmt"

// HTTPStatus 定义HTTP状态码常量
type HTTPStatus int

// HTTP状态码常量定义
const (
	OK                    HTTPStatus = 200
	BAD_REQUEST           HTTPStatus = 400
	NOT_FOUND             HTTPStatus = 404
	IM_A_TEAPOT           HTTPStatus = 418 // 只在状态表中出现，没有处理器会返回它
	INTERNAL_SERVER_ERROR HTTPStatus = 500
)

// 状态码对应的短消息和长消息
var StatusMessages = map[HTTPStatus][]string{
	OK:                    {"OK", "Request fulfilled, document follows"},
	BAD_REQUEST:           {"Bad Request", "Bad request syntax or unsupported method"},
	NOT_FOUND:             {"Not Found", "Nothing matches the given URI"},
	IM_A_TEAPOT:           {"I'm A Teapot", "The server refuses to brew coffee"},
	INTERNAL_SERVER_ERROR: {"Internal Server Error", "Server got itself in trouble"},
}

// Reason 返回状态码的短消息，未知状态码返回 "???"
func (s HTTPStatus) Reason() string {
	if msgs, ok := StatusMessages[s]; ok {
		return msgs[0]
	}
	return "???"
}

// String 形如 "404 Not Found"
func (s HTTPStatus) String() string {
	return fmt.Sprintf("%d %s", int(s), s.Reason())
}

// StatusLine 返回完整的 HTTP/1.0 状态行（含 CRLF）
func (s HTTPStatus) StatusLine() string {
	return "HTTP/1.0 " + s.String() + "\r\n"
}

// 错误页面的内容类型
const DefaultErrorContentType = "text/html"

package handler

import (
	"html"
	"sort"
	"strings"

	"github.com/Singert/cgihttpd/core/request"
	"github.com/Singert/cgihttpd/core/talklog"
	"github.com/Singert/cgihttpd/core/utils"
)

// browse 以 HTML 列表形式列出目录内容，按名字字节序排序，
// 不含 "."，但包含 ".." 和隐藏文件
func (h *Handler) browse(r *request.Request) error {
	talklog.Info(talklog.GID(), "Handling browse request for %s", r.Path)

	entries, err := readDir(r.Path)
	if err != nil {
		return notFound("cannot scan directory %s: %v", r.Path, err)
	}

	names := make([]string, 0, len(entries)+1)
	names = append(names, "..")
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	sep := "/"
	if strings.HasSuffix(r.URI, "/") {
		sep = ""
	}

	writeHead(r, utils.OK, "text/html")
	r.WriteString("<ul>\n")
	for _, name := range names {
		r.WriteString("<li><a href=\"" + html.EscapeString(r.URI+sep+name) + "\">" +
			html.EscapeString(name) + "</a></li>\n")
	}
	r.WriteString("</ul>\n")
	return nil
}

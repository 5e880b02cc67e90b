package request

// Header 一个请求头（名字区分大小写，名字和值都已去除首尾空白）
type Header struct {
	Name string
	Data string
}

// Headers 按解析顺序的逆序保存：最后解析的请求头排在最前
type Headers []Header

// prepend 把新解析的请求头放到最前面
func (h Headers) prepend(hdr Header) Headers {
	h = append(h, Header{})
	copy(h[1:], h)
	h[0] = hdr
	return h
}

// Get 返回第一个名字完全匹配的请求头的值
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if hdr.Name == name {
			return hdr.Data, true
		}
	}
	return "", false
}
